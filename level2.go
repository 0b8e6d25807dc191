package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel2 carries CM v2.9 creative trim passes for one target
// display. Several level 2 blocks may coexist, one per target.
type BlockLevel2 struct {
	TargetMaxPQ        uint16 `json:"target_max_pq"`
	TrimSlope          uint16 `json:"trim_slope"`
	TrimOffset         uint16 `json:"trim_offset"`
	TrimPower          uint16 `json:"trim_power"`
	TrimChromaWeight   uint16 `json:"trim_chroma_weight"`
	TrimSaturationGain uint16 `json:"trim_saturation_gain"`
	MSWeight           int16  `json:"ms_weight"`
}

func parseBlockLevel2(r *bits.Reader) (*BlockLevel2, error) {
	b := &BlockLevel2{}
	for _, f := range []*uint16{
		&b.TargetMaxPQ, &b.TrimSlope, &b.TrimOffset, &b.TrimPower,
		&b.TrimChromaWeight, &b.TrimSaturationGain,
	} {
		v, err := r.ReadBits(12)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}

	// ms_weight is a 13-bit two's complement value.
	v, err := r.ReadBits(13)
	if err != nil {
		return nil, err
	}
	b.MSWeight = int16(v)
	if v&0x1000 != 0 {
		b.MSWeight = int16(v) - 0x2000
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel2) Level() uint8 { return 2 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel2) LengthBytes() uint64 { return 11 }

func (b *BlockLevel2) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.TargetMaxPQ), 12)
	w.WriteBits(uint64(b.TrimSlope), 12)
	w.WriteBits(uint64(b.TrimOffset), 12)
	w.WriteBits(uint64(b.TrimPower), 12)
	w.WriteBits(uint64(b.TrimChromaWeight), 12)
	w.WriteBits(uint64(b.TrimSaturationGain), 12)
	w.WriteBits(uint64(uint16(b.MSWeight))&0x1FFF, 13)
	return nil
}

// defaultTrim is the neutral value of the 12-bit trim fields.
const defaultTrim = 2048
