package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// customPrimaryIndex signals explicit chromaticity coordinates
// instead of a predefined primary index.
const customPrimaryIndex = 255

// ColorPrimaries holds explicit chromaticity coordinates, coded as
// 16-bit fixed point.
type ColorPrimaries struct {
	RedX   uint16 `json:"red_x"`
	RedY   uint16 `json:"red_y"`
	GreenX uint16 `json:"green_x"`
	GreenY uint16 `json:"green_y"`
	BlueX  uint16 `json:"blue_x"`
	BlueY  uint16 `json:"blue_y"`
	WhiteX uint16 `json:"white_x"`
	WhiteY uint16 `json:"white_y"`
}

func parseColorPrimaries(r *bits.Reader) (*ColorPrimaries, error) {
	p := &ColorPrimaries{}
	for _, f := range []*uint16{
		&p.RedX, &p.RedY, &p.GreenX, &p.GreenY,
		&p.BlueX, &p.BlueY, &p.WhiteX, &p.WhiteY,
	} {
		v, err := r.ReadBits(16)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}
	return p, nil
}

func (p *ColorPrimaries) write(w *bits.Writer) {
	w.WriteBits(uint64(p.RedX), 16)
	w.WriteBits(uint64(p.RedY), 16)
	w.WriteBits(uint64(p.GreenX), 16)
	w.WriteBits(uint64(p.GreenY), 16)
	w.WriteBits(uint64(p.BlueX), 16)
	w.WriteBits(uint64(p.BlueY), 16)
	w.WriteBits(uint64(p.WhiteX), 16)
	w.WriteBits(uint64(p.WhiteY), 16)
}

// BlockLevel9 describes the source/mastering display color primaries,
// either as a predefined index or as explicit coordinates.
type BlockLevel9 struct {
	SourcePrimaryIndex uint8           `json:"source_primary_index"`
	Primaries          *ColorPrimaries `json:"source_primaries,omitempty"`
}

func parseBlockLevel9(r *bits.Reader, length uint64) (*BlockLevel9, error) {
	b := &BlockLevel9{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.SourcePrimaryIndex = uint8(v)

	if length > 1 {
		if b.Primaries, err = parseColorPrimaries(r); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel9) Level() uint8 { return 9 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel9) LengthBytes() uint64 {
	if b.Primaries != nil {
		return 17
	}
	return 1
}

func (b *BlockLevel9) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.SourcePrimaryIndex), 8)
	if b.Primaries != nil {
		b.Primaries.write(w)
	}
	return nil
}
