package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel3 carries CM v4.0 offsets applied on top of the level 1
// statistics.
type BlockLevel3 struct {
	MinPQOffset uint16 `json:"min_pq_offset"`
	MaxPQOffset uint16 `json:"max_pq_offset"`
	AvgPQOffset uint16 `json:"avg_pq_offset"`
}

func parseBlockLevel3(r *bits.Reader) (*BlockLevel3, error) {
	b := &BlockLevel3{}
	for _, f := range []*uint16{&b.MinPQOffset, &b.MaxPQOffset, &b.AvgPQOffset} {
		v, err := r.ReadBits(12)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel3) Level() uint8 { return 3 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel3) LengthBytes() uint64 { return 5 }

func (b *BlockLevel3) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.MinPQOffset), 12)
	w.WriteBits(uint64(b.MaxPQOffset), 12)
	w.WriteBits(uint64(b.AvgPQOffset), 12)
	return nil
}
