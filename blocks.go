package dovi

import (
	"fmt"

	"github.com/llehouerou/go-dovi/internal/bits"
)

// ExtMetadataBlock is one self-length-delimited extension metadata
// block. Concrete types exist for every level the CM v2.9 and v4.0
// payloads define; anything else round-trips as a ReservedBlock.
type ExtMetadataBlock interface {
	// Level returns the ext_block_level tag.
	Level() uint8

	// LengthBytes returns the declared block length. It is derived
	// from the current field values, never cached, so mutated blocks
	// re-encode with a correct length field.
	LengthBytes() uint64

	write(w *bits.Writer) error
}

// CloneBlock returns a deep copy of a block, so a template block can
// be added to many records without aliasing.
func CloneBlock(b ExtMetadataBlock) ExtMetadataBlock {
	return cloneBlock(b)
}

// singletonLevels are block levels for which an RPU may carry at most
// one block. Levels 2, 8 and 10 repeat per target display and are
// exempt.
var singletonLevels = map[uint8]bool{
	1: true, 3: true, 4: true, 5: true, 6: true,
	9: true, 11: true, 254: true, 255: true,
}

// parseExtBlock decodes a single ext_metadata_block. The declared
// byte length is the outer framing; the bits consumed by the
// level-specific fields must fit it exactly, with any slack made of
// zero alignment bits. A disagreement means either a truncated stream
// or a wrong level definition, and fails immediately instead of
// silently desynchronizing the blocks that follow.
func parseExtBlock(r *bits.Reader, ver cmVersion) (ExtMetadataBlock, error) {
	length, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	levelBits, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	level := uint8(levelBits)

	start := r.Pos()

	var block ExtMetadataBlock
	switch ver {
	case cmV29:
		switch level {
		case 1:
			block, err = parseBlockLevel1(r)
		case 2:
			block, err = parseBlockLevel2(r)
		case 4:
			block, err = parseBlockLevel4(r)
		case 5:
			block, err = parseBlockLevel5(r)
		case 6:
			block, err = parseBlockLevel6(r)
		case 255:
			block, err = parseBlockLevel255(r)
		default:
			block, err = parseReservedBlock(r, level, length)
		}
	case cmV40:
		switch level {
		case 1:
			block, err = parseBlockLevel1(r)
		case 3:
			block, err = parseBlockLevel3(r)
		case 8:
			block, err = parseBlockLevel8(r, length)
		case 9:
			block, err = parseBlockLevel9(r, length)
		case 10:
			block, err = parseBlockLevel10(r, length)
		case 11:
			block, err = parseBlockLevel11(r)
		case 254:
			block, err = parseBlockLevel254(r)
		default:
			block, err = parseReservedBlock(r, level, length)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("level %d block: %w", level, err)
	}

	consumed := r.Pos() - start
	declared := int(length) * 8
	if consumed > declared || block.LengthBytes() != length {
		return nil, fmt.Errorf("%w: level %d declared %d bytes, fields span %d bits",
			ErrBlockLengthMismatch, level, length, consumed)
	}

	// ext_dm_alignment_zero_bit
	for i := consumed; i < declared; i++ {
		bit, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if bit {
			return nil, fmt.Errorf("%w: level %d alignment bit set", ErrBlockLengthMismatch, level)
		}
	}

	return block, nil
}

// writeExtBlock encodes one block with its length re-derived from the
// fields actually written.
func writeExtBlock(w *bits.Writer, b ExtMetadataBlock) error {
	length := b.LengthBytes()

	w.WriteUE(length)
	w.WriteBits(uint64(b.Level()), 8)

	start := w.Len()
	if err := b.write(w); err != nil {
		return err
	}

	used := w.Len() - start
	declared := int(length) * 8
	if used > declared {
		return fmt.Errorf("%w: level %d wrote %d bits into %d bytes", ErrInvalidRecord, b.Level(), used, length)
	}
	for i := used; i < declared; i++ {
		w.WriteBit(false)
	}
	return nil
}
