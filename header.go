package dovi

import (
	"fmt"

	"github.com/llehouerou/go-dovi/internal/bits"
)

// rpuNALPrefix is the first payload byte of every RPU.
const rpuNALPrefix = 25

// Header holds the profile-independent RPU header fields, read in a
// fixed order before any profile-dependent branching.
type Header struct {
	RPUNALPrefix uint8  `json:"rpu_nal_prefix"`
	RPUType      uint8  `json:"rpu_type"`
	RPUFormat    uint16 `json:"rpu_format"`

	VDRRPUProfile       uint8 `json:"vdr_rpu_profile"`
	VDRRPULevel         uint8 `json:"vdr_rpu_level"`
	VDRSeqInfoPresent   bool  `json:"vdr_seq_info_present_flag"`

	ChromaResamplingExplicitFilterFlag bool   `json:"chroma_resampling_explicit_filter_flag"`
	CoefficientDataType                uint8  `json:"coefficient_data_type"`
	CoefficientLog2Denom               uint64 `json:"coefficient_log2_denom"`
	VDRRPUNormalizedIdc                uint8  `json:"vdr_rpu_normalized_idc"`
	BLVideoFullRangeFlag               bool   `json:"bl_video_full_range_flag"`

	BLBitDepthMinus8              uint64 `json:"bl_bit_depth_minus8"`
	ELBitDepthMinus8              uint64 `json:"el_bit_depth_minus8"`
	VDRBitDepthMinus8             uint64 `json:"vdr_bit_depth_minus8"`
	SpatialResamplingFilterFlag   bool   `json:"spatial_resampling_filter_flag"`
	Reserved3Bits                 uint8  `json:"reserved_zero_3bits"`
	ELSpatialResamplingFilterFlag bool   `json:"el_spatial_resampling_filter_flag"`
	DisableResidualFlag           bool   `json:"disable_residual_flag"`

	VDRDMMetadataPresent bool   `json:"vdr_dm_metadata_present_flag"`
	UsePrevVDRRPU        bool   `json:"use_prev_vdr_rpu_flag"`
	PrevVDRRPUID         uint64 `json:"prev_vdr_rpu_id"`
}

// BLBitDepth returns the base-layer bit depth.
func (h *Header) BLBitDepth() uint { return uint(h.BLBitDepthMinus8) + 8 }

// ELBitDepth returns the enhancement-layer bit depth.
func (h *Header) ELBitDepth() uint { return uint(h.ELBitDepthMinus8) + 8 }

// hasVDRSequenceDepthInfo reports whether the bit-depth group of the
// sequence info is coded for this rpu_format.
func (h *Header) hasVDRSequenceDepthInfo() bool {
	return h.RPUFormat&0x700 == 0
}

// residualPresent reports whether NLQ residual data follows the
// mapping curves.
func (h *Header) residualPresent() bool {
	return h.hasVDRSequenceDepthInfo() && !h.DisableResidualFlag
}

func parseHeader(r *bits.Reader) (*Header, error) {
	h := &Header{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	h.RPUNALPrefix = uint8(v)
	if h.RPUNALPrefix != rpuNALPrefix {
		return nil, fmt.Errorf("%w: rpu_nal_prefix %d", ErrUnsupportedProfile, h.RPUNALPrefix)
	}

	if v, err = r.ReadBits(6); err != nil {
		return nil, err
	}
	h.RPUType = uint8(v)
	if v, err = r.ReadBits(11); err != nil {
		return nil, err
	}
	h.RPUFormat = uint16(v)

	if h.RPUType != 2 {
		return nil, fmt.Errorf("%w: rpu_type %d", ErrUnsupportedProfile, h.RPUType)
	}

	if v, err = r.ReadBits(4); err != nil {
		return nil, err
	}
	h.VDRRPUProfile = uint8(v)
	if v, err = r.ReadBits(4); err != nil {
		return nil, err
	}
	h.VDRRPULevel = uint8(v)

	if h.VDRSeqInfoPresent, err = r.ReadBit(); err != nil {
		return nil, err
	}
	if h.VDRSeqInfoPresent {
		if err := h.parseSequenceInfo(r); err != nil {
			return nil, err
		}
	}

	if h.VDRDMMetadataPresent, err = r.ReadBit(); err != nil {
		return nil, err
	}
	if h.UsePrevVDRRPU, err = r.ReadBit(); err != nil {
		return nil, err
	}
	if h.UsePrevVDRRPU {
		if h.PrevVDRRPUID, err = r.ReadUE(); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func (h *Header) parseSequenceInfo(r *bits.Reader) error {
	var err error

	if h.ChromaResamplingExplicitFilterFlag, err = r.ReadBit(); err != nil {
		return err
	}
	v, err := r.ReadBits(2)
	if err != nil {
		return err
	}
	h.CoefficientDataType = uint8(v)
	if h.CoefficientDataType != 0 {
		// Floating point coefficients; no known stream uses them and
		// the coefficient widths below would be undefined.
		return fmt.Errorf("%w: coefficient_data_type %d", ErrUnsupportedProfile, h.CoefficientDataType)
	}
	if h.CoefficientLog2Denom, err = r.ReadUE(); err != nil {
		return err
	}

	if v, err = r.ReadBits(2); err != nil {
		return err
	}
	h.VDRRPUNormalizedIdc = uint8(v)
	if h.BLVideoFullRangeFlag, err = r.ReadBit(); err != nil {
		return err
	}

	if !h.hasVDRSequenceDepthInfo() {
		return nil
	}

	if h.BLBitDepthMinus8, err = r.ReadUE(); err != nil {
		return err
	}
	if h.ELBitDepthMinus8, err = r.ReadUE(); err != nil {
		return err
	}
	if h.VDRBitDepthMinus8, err = r.ReadUE(); err != nil {
		return err
	}
	if h.SpatialResamplingFilterFlag, err = r.ReadBit(); err != nil {
		return err
	}
	if v, err = r.ReadBits(3); err != nil {
		return err
	}
	h.Reserved3Bits = uint8(v)
	if h.ELSpatialResamplingFilterFlag, err = r.ReadBit(); err != nil {
		return err
	}
	h.DisableResidualFlag, err = r.ReadBit()
	return err
}

func (h *Header) write(w *bits.Writer) {
	w.WriteBits(uint64(h.RPUNALPrefix), 8)
	w.WriteBits(uint64(h.RPUType), 6)
	w.WriteBits(uint64(h.RPUFormat), 11)

	w.WriteBits(uint64(h.VDRRPUProfile), 4)
	w.WriteBits(uint64(h.VDRRPULevel), 4)
	w.WriteBit(h.VDRSeqInfoPresent)

	if h.VDRSeqInfoPresent {
		w.WriteBit(h.ChromaResamplingExplicitFilterFlag)
		w.WriteBits(uint64(h.CoefficientDataType), 2)
		w.WriteUE(h.CoefficientLog2Denom)
		w.WriteBits(uint64(h.VDRRPUNormalizedIdc), 2)
		w.WriteBit(h.BLVideoFullRangeFlag)

		if h.hasVDRSequenceDepthInfo() {
			w.WriteUE(h.BLBitDepthMinus8)
			w.WriteUE(h.ELBitDepthMinus8)
			w.WriteUE(h.VDRBitDepthMinus8)
			w.WriteBit(h.SpatialResamplingFilterFlag)
			w.WriteBits(uint64(h.Reserved3Bits), 3)
			w.WriteBit(h.ELSpatialResamplingFilterFlag)
			w.WriteBit(h.DisableResidualFlag)
		}
	}

	w.WriteBit(h.VDRDMMetadataPresent)
	w.WriteBit(h.UsePrevVDRRPU)
	if h.UsePrevVDRRPU {
		w.WriteUE(h.PrevVDRRPUID)
	}
}

// clone returns an independent copy of the header.
func (h *Header) clone() *Header {
	c := *h
	return &c
}
