package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// defaultVectorField is the neutral value of the level 8 saturation
// and hue vector fields.
const defaultVectorField = 128

// BlockLevel8 carries CM v4.0 creative trim passes for one target
// display. The block has grown across metadata revisions; the
// optional field groups are modeled as pointers so a parsed block
// re-encodes at exactly its original size, while blocks built in
// memory grow only as far as the last populated group.
type BlockLevel8 struct {
	TargetDisplayIndex uint8  `json:"target_display_index"`
	TrimSlope          uint16 `json:"trim_slope"`
	TrimOffset         uint16 `json:"trim_offset"`
	TrimPower          uint16 `json:"trim_power"`
	TrimChromaWeight   uint16 `json:"trim_chroma_weight"`
	TrimSaturationGain uint16 `json:"trim_saturation_gain"`
	MSWeight           uint16 `json:"ms_weight"`

	TargetMidContrast *uint16    `json:"target_mid_contrast,omitempty"`
	ClipTrim          *uint16    `json:"clip_trim,omitempty"`
	SaturationVectors *[6]uint8  `json:"saturation_vector_fields,omitempty"`
	HueVectors        *[6]uint8  `json:"hue_vector_fields,omitempty"`
}

func parseBlockLevel8(r *bits.Reader, length uint64) (*BlockLevel8, error) {
	b := &BlockLevel8{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.TargetDisplayIndex = uint8(v)

	for _, f := range []*uint16{
		&b.TrimSlope, &b.TrimOffset, &b.TrimPower,
		&b.TrimChromaWeight, &b.TrimSaturationGain, &b.MSWeight,
	} {
		if v, err = r.ReadBits(12); err != nil {
			return nil, err
		}
		*f = uint16(v)
	}

	if length > 10 {
		if v, err = r.ReadBits(12); err != nil {
			return nil, err
		}
		mid := uint16(v)
		b.TargetMidContrast = &mid
	}
	if length > 12 {
		if v, err = r.ReadBits(12); err != nil {
			return nil, err
		}
		clip := uint16(v)
		b.ClipTrim = &clip
	}
	if length > 13 {
		var sat [6]uint8
		for i := range sat {
			if v, err = r.ReadBits(8); err != nil {
				return nil, err
			}
			sat[i] = uint8(v)
		}
		b.SaturationVectors = &sat
	}
	if length > 19 {
		var hue [6]uint8
		for i := range hue {
			if v, err = r.ReadBits(8); err != nil {
				return nil, err
			}
			hue[i] = uint8(v)
		}
		b.HueVectors = &hue
	}

	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel8) Level() uint8 { return 8 }

// LengthBytes implements ExtMetadataBlock. The size is decided by the
// outermost populated optional group.
func (b *BlockLevel8) LengthBytes() uint64 {
	switch {
	case b.HueVectors != nil:
		return 25
	case b.SaturationVectors != nil:
		return 19
	case b.ClipTrim != nil:
		return 13
	case b.TargetMidContrast != nil:
		return 12
	default:
		return 10
	}
}

func (b *BlockLevel8) write(w *bits.Writer) error {
	length := b.LengthBytes()

	w.WriteBits(uint64(b.TargetDisplayIndex), 8)
	w.WriteBits(uint64(b.TrimSlope), 12)
	w.WriteBits(uint64(b.TrimOffset), 12)
	w.WriteBits(uint64(b.TrimPower), 12)
	w.WriteBits(uint64(b.TrimChromaWeight), 12)
	w.WriteBits(uint64(b.TrimSaturationGain), 12)
	w.WriteBits(uint64(b.MSWeight), 12)

	// Inner groups that were left nil are written as defaults when an
	// outer group forces them to be present.
	if length > 10 {
		w.WriteBits(uint64(valueOr(b.TargetMidContrast, defaultTrim)), 12)
	}
	if length > 12 {
		w.WriteBits(uint64(valueOr(b.ClipTrim, defaultTrim)), 12)
	}
	if length > 13 {
		writeVectorFields(w, b.SaturationVectors)
	}
	if length > 19 {
		writeVectorFields(w, b.HueVectors)
	}
	return nil
}

func valueOr(p *uint16, def uint16) uint16 {
	if p != nil {
		return *p
	}
	return def
}

func writeVectorFields(w *bits.Writer, fields *[6]uint8) {
	for i := 0; i < 6; i++ {
		v := uint8(defaultVectorField)
		if fields != nil {
			v = fields[i]
		}
		w.WriteBits(uint64(v), 8)
	}
}

// clone returns an independent copy of the block.
func (b *BlockLevel8) clone() *BlockLevel8 {
	c := *b
	if b.TargetMidContrast != nil {
		v := *b.TargetMidContrast
		c.TargetMidContrast = &v
	}
	if b.ClipTrim != nil {
		v := *b.ClipTrim
		c.ClipTrim = &v
	}
	if b.SaturationVectors != nil {
		v := *b.SaturationVectors
		c.SaturationVectors = &v
	}
	if b.HueVectors != nil {
		v := *b.HueVectors
		c.HueVectors = &v
	}
	return &c
}
