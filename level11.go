package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel11 carries the CM v4.0 content type description used for
// picture mode selection.
type BlockLevel11 struct {
	ContentType       uint8 `json:"content_type"`
	WhitePoint        uint8 `json:"whitepoint"`
	ReferenceModeFlag bool  `json:"reference_mode_flag"`
	ReservedByte2     uint8 `json:"reserved_byte2"`
	ReservedByte3     uint8 `json:"reserved_byte3"`
}

func parseBlockLevel11(r *bits.Reader) (*BlockLevel11, error) {
	b := &BlockLevel11{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.ContentType = uint8(v)
	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	b.WhitePoint = uint8(v)
	if b.ReferenceModeFlag, err = r.ReadBit(); err != nil {
		return nil, err
	}
	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	b.ReservedByte2 = uint8(v)
	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	b.ReservedByte3 = uint8(v)
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel11) Level() uint8 { return 11 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel11) LengthBytes() uint64 { return 5 }

func (b *BlockLevel11) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.ContentType), 8)
	w.WriteBits(uint64(b.WhitePoint), 8)
	w.WriteBit(b.ReferenceModeFlag)
	w.WriteBits(uint64(b.ReservedByte2), 8)
	w.WriteBits(uint64(b.ReservedByte3), 8)
	return nil
}
