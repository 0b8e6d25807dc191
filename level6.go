package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// maxPQLuminance is the upper bound of 12-bit PQ-coded luminance
// fields.
const maxPQLuminance = 4095

// BlockLevel6 carries the static HDR10 mastering display and content
// light level metadata.
type BlockLevel6 struct {
	MaxDisplayMasteringLuminance uint16 `json:"max_display_mastering_luminance"`
	MinDisplayMasteringLuminance uint16 `json:"min_display_mastering_luminance"`
	MaxContentLightLevel         uint16 `json:"max_content_light_level"`
	MaxFrameAverageLightLevel    uint16 `json:"max_frame_average_light_level"`
}

func parseBlockLevel6(r *bits.Reader) (*BlockLevel6, error) {
	b := &BlockLevel6{}
	for _, f := range []*uint16{
		&b.MaxDisplayMasteringLuminance, &b.MinDisplayMasteringLuminance,
		&b.MaxContentLightLevel, &b.MaxFrameAverageLightLevel,
	} {
		v, err := r.ReadBits(16)
		if err != nil {
			return nil, err
		}
		*f = uint16(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel6) Level() uint8 { return 6 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel6) LengthBytes() uint64 { return 8 }

func (b *BlockLevel6) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.MaxDisplayMasteringLuminance), 16)
	w.WriteBits(uint64(b.MinDisplayMasteringLuminance), 16)
	w.WriteBits(uint64(b.MaxContentLightLevel), 16)
	w.WriteBits(uint64(b.MaxFrameAverageLightLevel), 16)
	return nil
}
