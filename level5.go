package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel5 carries the active area offsets of the frame, in pixels
// from each edge.
type BlockLevel5 struct {
	ActiveAreaLeftOffset   uint16 `json:"active_area_left_offset"`
	ActiveAreaRightOffset  uint16 `json:"active_area_right_offset"`
	ActiveAreaTopOffset    uint16 `json:"active_area_top_offset"`
	ActiveAreaBottomOffset uint16 `json:"active_area_bottom_offset"`
}

func parseBlockLevel5(r *bits.Reader) (*BlockLevel5, error) {
	b := &BlockLevel5{}
	for _, f := range []*uint16{
		&b.ActiveAreaLeftOffset, &b.ActiveAreaRightOffset,
		&b.ActiveAreaTopOffset, &b.ActiveAreaBottomOffset,
	} {
		v, err := r.ReadBits(13)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel5) Level() uint8 { return 5 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel5) LengthBytes() uint64 { return 7 }

func (b *BlockLevel5) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.ActiveAreaLeftOffset), 13)
	w.WriteBits(uint64(b.ActiveAreaRightOffset), 13)
	w.WriteBits(uint64(b.ActiveAreaTopOffset), 13)
	w.WriteBits(uint64(b.ActiveAreaBottomOffset), 13)
	return nil
}
