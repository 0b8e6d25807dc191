package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel10 describes a custom target display. Several level 10
// blocks may coexist, one per target display index.
type BlockLevel10 struct {
	TargetDisplayIndex uint8           `json:"target_display_index"`
	TargetMaxPQ        uint16          `json:"target_max_pq"`
	TargetMinPQ        uint16          `json:"target_min_pq"`
	TargetPrimaryIndex uint8           `json:"target_primary_index"`
	Primaries          *ColorPrimaries `json:"target_primaries,omitempty"`
}

func parseBlockLevel10(r *bits.Reader, length uint64) (*BlockLevel10, error) {
	b := &BlockLevel10{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.TargetDisplayIndex = uint8(v)

	if v, err = r.ReadBits(12); err != nil {
		return nil, err
	}
	b.TargetMaxPQ = uint16(v)
	if v, err = r.ReadBits(12); err != nil {
		return nil, err
	}
	b.TargetMinPQ = uint16(v)

	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	b.TargetPrimaryIndex = uint8(v)

	if length > 5 {
		if b.Primaries, err = parseColorPrimaries(r); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel10) Level() uint8 { return 10 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel10) LengthBytes() uint64 {
	if b.Primaries != nil {
		return 21
	}
	return 5
}

func (b *BlockLevel10) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.TargetDisplayIndex), 8)
	w.WriteBits(uint64(b.TargetMaxPQ), 12)
	w.WriteBits(uint64(b.TargetMinPQ), 12)
	w.WriteBits(uint64(b.TargetPrimaryIndex), 8)
	if b.Primaries != nil {
		b.Primaries.write(w)
	}
	return nil
}
