package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// BlockLevel255 carries enhancement-layer DM run mode and debug
// values. It only appears alongside an enhancement layer and is
// dropped when converting to a single-layer profile.
type BlockLevel255 struct {
	DMRunMode    uint8    `json:"dm_run_mode"`
	DMRunVersion uint8    `json:"dm_run_version"`
	DMDebug      [4]uint8 `json:"dm_debug"`
}

func parseBlockLevel255(r *bits.Reader) (*BlockLevel255, error) {
	b := &BlockLevel255{}

	v, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	b.DMRunMode = uint8(v)
	if v, err = r.ReadBits(8); err != nil {
		return nil, err
	}
	b.DMRunVersion = uint8(v)
	for i := range b.DMDebug {
		if v, err = r.ReadBits(8); err != nil {
			return nil, err
		}
		b.DMDebug[i] = uint8(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *BlockLevel255) Level() uint8 { return 255 }

// LengthBytes implements ExtMetadataBlock.
func (b *BlockLevel255) LengthBytes() uint64 { return 6 }

func (b *BlockLevel255) write(w *bits.Writer) error {
	w.WriteBits(uint64(b.DMRunMode), 8)
	w.WriteBits(uint64(b.DMRunVersion), 8)
	for _, d := range b.DMDebug {
		w.WriteBits(uint64(d), 8)
	}
	return nil
}
