package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel1 carries per-shot content light statistics in 12-bit PQ.
type BlockLevel1 struct {
	MinPQ uint16 `json:"min_pq"`
	MaxPQ uint16 `json:"max_pq"`
	AvgPQ uint16 `json:"avg_pq"`
}

func parseBlockLevel1(r *bits.Reader) (*BlockLevel1, error) {
	b := &BlockLevel1{}
	for _, f := range []*uint16{&b.MinPQ, &b.MaxPQ, &b.AvgPQ} {
		v, err := r.ReadBits(12)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel1) Level() uint8 { return 1 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel1) LengthBytes() uint64 { return 5 }

func (b *BlockLevel1) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.MinPQ), 12)
	w.WriteBits(uint64(b.MaxPQ), 12)
	w.WriteBits(uint64(b.AvgPQ), 12)
	return nil
}
