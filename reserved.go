package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// ReservedBlock preserves a block of an unknown or future level as an
// opaque byte blob so newer metadata revisions round-trip untouched.
type ReservedBlock struct {
	BlockLevel uint8  `json:"level"`
	Data       []byte `json:"data"`
}

func parseReservedBlock(r *bits.Reader, level uint8, length uint64) (*ReservedBlock, error) {
	if length > uint64(r.Remaining())/8 {
		return nil, ErrUnexpectedEndOfData
	}
	b := &ReservedBlock{
		BlockLevel: level,
		Data:       make([]byte, length),
	}
	for i := range b.Data {
		v, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		b.Data[i] = byte(v)
	}
	return b, nil
}

// Level implements ExtMetadataBlock.
func (b *ReservedBlock) Level() uint8 { return b.BlockLevel }

// LengthBytes implements ExtMetadataBlock.
func (b *ReservedBlock) LengthBytes() uint64 { return uint64(len(b.Data)) }

func (b *ReservedBlock) write(w *bits.Writer) error {
	for _, d := range b.Data {
		w.WriteBits(uint64(d), 8)
	}
	return nil
}
