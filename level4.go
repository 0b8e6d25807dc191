package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel4 carries CM v2.9 scene anchor values.
type BlockLevel4 struct {
	AnchorPQ    uint16 `json:"anchor_pq"`
	AnchorPower uint16 `json:"anchor_power"`
}

func parseBlockLevel4(r *bits.Reader) (*BlockLevel4, error) {
	b := &BlockLevel4{}
	for _, f := range []*uint16{&b.AnchorPQ, &b.AnchorPower} {
		v, err := r.ReadBits(12)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel4) Level() uint8 { return 4 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel4) LengthBytes() uint64 { return 3 }

func (b *BlockLevel4) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.AnchorPQ), 12)
	w.WriteBits(uint64(b.AnchorPower), 12)
	return nil
}
