package dovi

import (
	"encoding/binary"
	"fmt"

	"github.com/llehouerou/go-dovi/internal/bits"
	"github.com/llehouerou/go-dovi/internal/crc"
)

// nalUnitHeader is the two-byte HEVC NAL unit header of an UNSPEC62
// unit, which is how Dolby Vision RPUs travel in a video stream.
var nalUnitHeader = []byte{0x7C, 0x01}

// rpuTrailerBytes is the fixed tail of every RPU payload: a 32-bit
// CRC and the 0x80 terminator byte.
const rpuTrailerBytes = 5

// RPU is one fully decoded reference processing unit.
type RPU struct {
	Profile Profile `json:"profile"`
	ELType  ELType  `json:"el_type"`

	Header  *Header         `json:"header"`
	Mapping *RPUDataMapping `json:"rpu_data_mapping,omitempty"`
	NLQ     *NLQData        `json:"rpu_data_nlq,omitempty"`
	DM      *DMData         `json:"vdr_dm_data,omitempty"`

	// CRC32 is the checksum carried by the payload; ChecksumValid
	// reports whether it matched the bytes actually received. A
	// mismatch does not fail the parse, since the structural fields
	// usually survive single-bit corruption of unrelated bytes.
	CRC32         uint32 `json:"rpu_data_crc32"`
	ChecksumValid bool   `json:"checksum_valid"`
}

// stripNALHeader drops the leading 0x7C01 NAL unit header if present,
// so callers may pass either a full NAL unit or a bare RPU payload.
func stripNALHeader(data []byte) []byte {
	if len(data) >= 2 && data[0] == nalUnitHeader[0] && data[1] == nalUnitHeader[1] {
		return data[2:]
	}
	return data
}

// ParseNALUnit decodes a complete RPU from a NAL unit or bare payload.
// The input must already be unescaped (RBSP form, no emulation
// prevention bytes).
func ParseNALUnit(data []byte) (*RPU, error) {
	payload := stripNALHeader(data)
	if len(payload) < rpuTrailerBytes+1 {
		return nil, ErrUnexpectedEndOfData
	}

	r := bits.NewReader(payload)
	rpu := &RPU{}

	h, err := parseHeader(r)
	if err != nil {
		return nil, fmt.Errorf("rpu header: %w", err)
	}
	rpu.Header = h

	if !h.UsePrevVDRRPU {
		if rpu.Mapping, rpu.NLQ, err = parseMapping(r, h); err != nil {
			return nil, fmt.Errorf("rpu data mapping: %w", err)
		}
		if rpu.NLQ != nil {
			if err := rpu.NLQ.parseParams(r, h); err != nil {
				return nil, fmt.Errorf("rpu data nlq: %w", err)
			}
		}
	}

	if h.VDRDMMetadataPresent {
		if rpu.DM, err = parseDMData(r); err != nil {
			return nil, fmt.Errorf("vdr dm data: %w", err)
		}
	}

	// rpu_alignment_zero_bit
	for !r.IsAligned() {
		bit, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if bit {
			return nil, fmt.Errorf("%w: rpu alignment bit set", ErrInvalidRecord)
		}
	}

	v, err := r.ReadBits(32)
	if err != nil {
		return nil, err
	}
	rpu.CRC32 = uint32(v)
	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	if v != 0x80 {
		return nil, fmt.Errorf("%w: terminator byte 0x%02X", ErrInvalidRecord, v)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bits after terminator", ErrInvalidRecord, r.Remaining())
	}

	computed := crc.Checksum(payload[1 : len(payload)-rpuTrailerBytes])
	rpu.ChecksumValid = computed == rpu.CRC32

	rpu.Profile = calculateProfile(h)
	if rpu.Profile == Profile81 {
		rpu.Profile = refineSingleLayerProfile(h, rpu.DM)
	}
	if rpu.NLQ != nil {
		if rpu.NLQ.IsMEL() {
			rpu.ELType = ELTypeMEL
		} else {
			rpu.ELType = ELTypeFEL
		}
	}

	return rpu, nil
}

// ValidateChecksum checks the trailing CRC of a NAL unit or bare
// payload without decoding it. It returns ErrChecksumMismatch when the
// stored and computed values disagree.
func ValidateChecksum(data []byte) error {
	payload := stripNALHeader(data)
	if len(payload) < rpuTrailerBytes+1 {
		return ErrUnexpectedEndOfData
	}
	stored := binary.BigEndian.Uint32(payload[len(payload)-rpuTrailerBytes:])
	computed := crc.Checksum(payload[1 : len(payload)-rpuTrailerBytes])
	if stored != computed {
		return fmt.Errorf("%w: stored 0x%08X, computed 0x%08X", ErrChecksumMismatch, stored, computed)
	}
	return nil
}

// Encode serializes the RPU back to a bare payload, recomputing the
// trailing CRC from the bytes written. A parsed RPU with unchanged
// fields encodes to the exact input bytes.
func (rpu *RPU) Encode() ([]byte, error) {
	if rpu.Header == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidRecord)
	}

	w := bits.NewWriter(256)
	rpu.Header.write(w)

	if !rpu.Header.UsePrevVDRRPU {
		if rpu.Mapping == nil {
			return nil, fmt.Errorf("%w: missing rpu data mapping", ErrInvalidRecord)
		}
		if rpu.Header.residualPresent() != (rpu.NLQ != nil) {
			return nil, fmt.Errorf("%w: nlq data disagrees with header residual flags", ErrInvalidRecord)
		}
		if err := rpu.Mapping.write(w, rpu.Header, rpu.NLQ); err != nil {
			return nil, err
		}
		if rpu.NLQ != nil {
			rpu.NLQ.writeParams(w, rpu.Header)
		}
	}

	if rpu.Header.VDRDMMetadataPresent {
		if rpu.DM == nil {
			return nil, fmt.Errorf("%w: header signals dm metadata but none attached", ErrInvalidRecord)
		}
		if err := rpu.DM.write(w); err != nil {
			return nil, err
		}
	}

	w.AlignZero()
	payload := w.Bytes()

	checksum := crc.Checksum(payload[1:])
	var trailer [rpuTrailerBytes]byte
	binary.BigEndian.PutUint32(trailer[:4], checksum)
	trailer[4] = 0x80

	return append(payload, trailer[:]...), nil
}

// EncodeNALUnit serializes the RPU prefixed with the 0x7C01 NAL unit
// header, ready for insertion into an HEVC stream after emulation
// prevention escaping.
func (rpu *RPU) EncodeNALUnit() ([]byte, error) {
	payload, err := rpu.Encode()
	if err != nil {
		return nil, err
	}
	return append(append(make([]byte, 0, len(payload)+2), nalUnitHeader...), payload...), nil
}

// Validate checks structural consistency beyond what parsing enforces:
// header presence flags must agree with the attached payloads and the
// DM block lists must satisfy the per-level constraints.
func (rpu *RPU) Validate() error {
	h := rpu.Header
	if h == nil {
		return fmt.Errorf("%w: missing header", ErrInvalidRecord)
	}
	if h.UsePrevVDRRPU != (rpu.Mapping == nil) {
		return fmt.Errorf("%w: mapping presence disagrees with use_prev_vdr_rpu_flag", ErrInvalidRecord)
	}
	if !h.UsePrevVDRRPU && h.residualPresent() != (rpu.NLQ != nil) {
		return fmt.Errorf("%w: nlq presence disagrees with header residual flags", ErrInvalidRecord)
	}
	if h.VDRDMMetadataPresent != (rpu.DM != nil) {
		return fmt.Errorf("%w: dm presence disagrees with vdr_dm_metadata_present_flag", ErrInvalidRecord)
	}
	if rpu.DM != nil {
		if err := rpu.DM.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy sharing no mutable state with the
// original.
func (rpu *RPU) Clone() *RPU {
	c := *rpu
	if rpu.Header != nil {
		c.Header = rpu.Header.clone()
	}
	if rpu.Mapping != nil {
		c.Mapping = rpu.Mapping.clone()
	}
	if rpu.NLQ != nil {
		c.NLQ = rpu.NLQ.clone()
	}
	if rpu.DM != nil {
		c.DM = rpu.DM.clone()
	}
	return &c
}
