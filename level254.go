package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel254 marks a CM v4.0 payload and carries its DM mode and
// version index.
type BlockLevel254 struct {
	DMMode         uint8 `json:"dm_mode"`
	DMVersionIndex uint8 `json:"dm_version_index"`
}

func parseBlockLevel254(r *bits.Reader) (*BlockLevel254, error) {
	b := &BlockLevel254{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.DMMode = uint8(v)
	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	b.DMVersionIndex = uint8(v)
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel254) Level() uint8 { return 254 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel254) LengthBytes() uint64 { return 2 }

func (b *BlockLevel254) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.DMMode), 8)
	w.WriteBits(uint64(b.DMVersionIndex), 8)
	return nil
}
