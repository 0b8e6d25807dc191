package dovi

import (
	"fmt"

	"github.com/llehouerou/go-dovi/internal/bits"
)

// cmVersion selects which extension block levels a DM payload may
// carry. The CM v2.9 and v4.0 payloads use disjoint level sets apart
// from level 1.
type cmVersion uint8

const (
	cmV29 cmVersion = iota
	cmV40
)

// cmV29Levels and cmV40Levels are the block levels each payload
// version accepts. Unknown levels round-trip as ReservedBlock and are
// accepted in either payload.
var (
	cmV29Levels = map[uint8]bool{1: true, 2: true, 4: true, 5: true, 6: true, 255: true}
	cmV40Levels = map[uint8]bool{1: true, 3: true, 8: true, 9: true, 10: true, 11: true, 254: true}
)

// trailerBits bounds what legitimately follows the DM payload in an
// RPU: at most 7 alignment bits, a 32-bit CRC and the final 0x80 byte.
// Anything beyond that after the CM v2.9 blocks is a CM v4.0 payload.
const trailerBits = 7 + 32 + 8

// DMData is the display management payload of an RPU: the colorimetry
// and signal description followed by the CM v2.9 extension blocks and,
// on CM v4.0 streams, a second block list.
type DMData struct {
	AffectedDMMetadataID uint64 `json:"affected_dm_metadata_id"`
	CurrentDMMetadataID  uint64 `json:"current_dm_metadata_id"`
	SceneRefreshFlag     uint64 `json:"scene_refresh_flag"`

	YCCToRGBCoef   [9]int16  `json:"ycc_to_rgb_coef"`
	YCCToRGBOffset [3]uint32 `json:"ycc_to_rgb_offset"`
	RGBToLMSCoef   [9]int16  `json:"rgb_to_lms_coef"`

	SignalEOTF       uint16 `json:"signal_eotf"`
	SignalEOTFParam0 uint16 `json:"signal_eotf_param0"`
	SignalEOTFParam1 uint16 `json:"signal_eotf_param1"`
	SignalEOTFParam2 uint32 `json:"signal_eotf_param2"`

	SignalBitDepth      uint8 `json:"signal_bit_depth"`
	SignalColorSpace    uint8 `json:"signal_color_space"`
	SignalChromaFormat  uint8 `json:"signal_chroma_format"`
	SignalFullRangeFlag uint8 `json:"signal_full_range_flag"`

	SourceMinPQ    uint16 `json:"source_min_pq"`
	SourceMaxPQ    uint16 `json:"source_max_pq"`
	SourceDiagonal uint16 `json:"source_diagonal"`

	// CMv29 holds the first extension block list, present on every
	// stream. CMv40 is nil unless the stream carries a CM v4.0
	// payload, in which case it holds the second list.
	CMv29 []ExtMetadataBlock `json:"cm_v29_blocks"`
	CMv40 []ExtMetadataBlock `json:"cm_v40_blocks,omitempty"`
}

// IsCMv40 reports whether a CM v4.0 payload is present.
func (d *DMData) IsCMv40() bool { return d.CMv40 != nil }

func parseDMData(r *bits.Reader) (*DMData, error) {
	d := &DMData{}
	var err error

	if d.AffectedDMMetadataID, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if d.CurrentDMMetadataID, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if d.SceneRefreshFlag, err = r.ReadUE(); err != nil {
		return nil, err
	}

	for i := range d.YCCToRGBCoef {
		v, err := r.ReadBits(16)
		if err != nil {
			return nil, err
		}
		d.YCCToRGBCoef[i] = int16(uint16(v))
	}
	for i := range d.YCCToRGBOffset {
		v, err := r.ReadBits(32)
		if err != nil {
			return nil, err
		}
		d.YCCToRGBOffset[i] = uint32(v)
	}
	for i := range d.RGBToLMSCoef {
		v, err := r.ReadBits(16)
		if err != nil {
			return nil, err
		}
		d.RGBToLMSCoef[i] = int16(uint16(v))
	}

	v, err := r.ReadBits(16)
	if err != nil {
		return nil, err
	}
	d.SignalEOTF = uint16(v)
	if v, err = r.ReadBits(16); err != nil {
		return nil, err
	}
	d.SignalEOTFParam0 = uint16(v)
	if v, err = r.ReadBits(16); err != nil {
		return nil, err
	}
	d.SignalEOTFParam1 = uint16(v)
	if v, err = r.ReadBits(32); err != nil {
		return nil, err
	}
	d.SignalEOTFParam2 = uint32(v)

	if v, err = r.ReadBits(5); err != nil {
		return nil, err
	}
	d.SignalBitDepth = uint8(v)
	if v, err = r.ReadBits(2); err != nil {
		return nil, err
	}
	d.SignalColorSpace = uint8(v)
	if v, err = r.ReadBits(2); err != nil {
		return nil, err
	}
	d.SignalChromaFormat = uint8(v)
	if v, err = r.ReadBits(2); err != nil {
		return nil, err
	}
	d.SignalFullRangeFlag = uint8(v)

	if v, err = r.ReadBits(12); err != nil {
		return nil, err
	}
	d.SourceMinPQ = uint16(v)
	if v, err = r.ReadBits(12); err != nil {
		return nil, err
	}
	d.SourceMaxPQ = uint16(v)
	if v, err = r.ReadBits(10); err != nil {
		return nil, err
	}
	d.SourceDiagonal = uint16(v)

	if d.CMv29, err = parseBlockList(r, cmV29); err != nil {
		return nil, err
	}

	// A CM v4.0 payload has no presence flag of its own. Whatever is
	// left after the CM v2.9 blocks is either the RPU trailer or a
	// second block list; only the latter can exceed the trailer size.
	if r.Remaining() > trailerBits {
		if d.CMv40, err = parseBlockList(r, cmV40); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func parseBlockList(r *bits.Reader, ver cmVersion) ([]ExtMetadataBlock, error) {
	count, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	// Each block costs at least its length and level fields, so a
	// count beyond the bits still unread is malformed. This also caps
	// the allocation below at the payload size.
	if count > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d extension blocks declared", ErrUnexpectedEndOfData, count)
	}

	// ext_dm_alignment_zero_bit, present even for an empty list.
	for !r.IsAligned() {
		bit, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if bit {
			return nil, fmt.Errorf("%w: block list alignment bit set", ErrInvalidRecord)
		}
	}

	blocks := make([]ExtMetadataBlock, 0, count)
	for i := uint64(0); i < count; i++ {
		b, err := parseExtBlock(r, ver)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (d *DMData) write(w *bits.Writer) error {
	w.WriteUE(d.AffectedDMMetadataID)
	w.WriteUE(d.CurrentDMMetadataID)
	w.WriteUE(d.SceneRefreshFlag)

	for _, c := range d.YCCToRGBCoef {
		w.WriteBits(uint64(uint16(c)), 16)
	}
	for _, o := range d.YCCToRGBOffset {
		w.WriteBits(uint64(o), 32)
	}
	for _, c := range d.RGBToLMSCoef {
		w.WriteBits(uint64(uint16(c)), 16)
	}

	w.WriteBits(uint64(d.SignalEOTF), 16)
	w.WriteBits(uint64(d.SignalEOTFParam0), 16)
	w.WriteBits(uint64(d.SignalEOTFParam1), 16)
	w.WriteBits(uint64(d.SignalEOTFParam2), 32)

	w.WriteBits(uint64(d.SignalBitDepth), 5)
	w.WriteBits(uint64(d.SignalColorSpace), 2)
	w.WriteBits(uint64(d.SignalChromaFormat), 2)
	w.WriteBits(uint64(d.SignalFullRangeFlag), 2)

	w.WriteBits(uint64(d.SourceMinPQ), 12)
	w.WriteBits(uint64(d.SourceMaxPQ), 12)
	w.WriteBits(uint64(d.SourceDiagonal), 10)

	if err := writeBlockList(w, d.CMv29); err != nil {
		return err
	}
	if d.CMv40 != nil {
		if err := writeBlockList(w, d.CMv40); err != nil {
			return err
		}
	}
	return nil
}

func writeBlockList(w *bits.Writer, blocks []ExtMetadataBlock) error {
	w.WriteUE(uint64(len(blocks)))
	w.AlignZero()
	for _, b := range blocks {
		if err := writeExtBlock(w, b); err != nil {
			return err
		}
	}
	return nil
}

// AddBlock appends a block to the payload matching its level,
// replacing any existing block of a singleton level. Adding a CM v4.0
// level to a CM v2.9 stream returns ErrInvalidRecord.
func (d *DMData) AddBlock(b ExtMetadataBlock) error {
	level := b.Level()
	switch {
	case cmV29Levels[level]:
		d.CMv29 = addToList(d.CMv29, b)
	case cmV40Levels[level]:
		if !d.IsCMv40() {
			return fmt.Errorf("%w: level %d block requires a CM v4.0 payload", ErrInvalidRecord, level)
		}
		d.CMv40 = addToList(d.CMv40, b)
	default:
		return fmt.Errorf("%w: level %d has no payload version", ErrInvalidRecord, level)
	}
	return nil
}

func addToList(blocks []ExtMetadataBlock, b ExtMetadataBlock) []ExtMetadataBlock {
	if singletonLevels[b.Level()] {
		for i, old := range blocks {
			if old.Level() == b.Level() {
				blocks[i] = b
				return blocks
			}
		}
	}
	return append(blocks, b)
}

// RemoveLevel drops every block of the given level from both block
// lists and reports how many were removed.
func (d *DMData) RemoveLevel(level uint8) int {
	removed := 0
	d.CMv29, removed = removeFromList(d.CMv29, level, removed)
	if d.CMv40 != nil {
		d.CMv40, removed = removeFromList(d.CMv40, level, removed)
	}
	return removed
}

func removeFromList(blocks []ExtMetadataBlock, level uint8, removed int) ([]ExtMetadataBlock, int) {
	kept := blocks[:0]
	for _, b := range blocks {
		if b.Level() == level {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	return kept, removed
}

// FirstBlock returns the first block of the given level from either
// list, or nil.
func (d *DMData) FirstBlock(level uint8) ExtMetadataBlock {
	for _, b := range d.CMv29 {
		if b.Level() == level {
			return b
		}
	}
	for _, b := range d.CMv40 {
		if b.Level() == level {
			return b
		}
	}
	return nil
}

// validate checks the singleton constraint and that each block sits in
// the list its level belongs to.
func (d *DMData) validate() error {
	if err := validateBlockList(d.CMv29, cmV29Levels); err != nil {
		return err
	}
	if d.CMv40 != nil {
		if err := validateBlockList(d.CMv40, cmV40Levels); err != nil {
			return err
		}
		if d.FirstBlock(254) == nil {
			return fmt.Errorf("%w: CM v4.0 payload without a level 254 block", ErrInvalidRecord)
		}
	}
	return nil
}

func validateBlockList(blocks []ExtMetadataBlock, allowed map[uint8]bool) error {
	seen := map[uint8]bool{}
	for _, b := range blocks {
		level := b.Level()
		if _, reserved := b.(*ReservedBlock); !reserved && !allowed[level] {
			return fmt.Errorf("%w: level %d block in wrong payload version", ErrInvalidRecord, level)
		}
		if singletonLevels[level] && seen[level] {
			return fmt.Errorf("%w: duplicate level %d block", ErrInvalidRecord, level)
		}
		seen[level] = true
	}
	return nil
}

func (d *DMData) clone() *DMData {
	c := *d
	c.CMv29 = cloneBlockList(d.CMv29)
	if d.CMv40 != nil {
		c.CMv40 = cloneBlockList(d.CMv40)
	}
	return &c
}

func cloneBlockList(blocks []ExtMetadataBlock) []ExtMetadataBlock {
	out := make([]ExtMetadataBlock, len(blocks))
	for i, b := range blocks {
		out[i] = cloneBlock(b)
	}
	return out
}

func cloneBlock(b ExtMetadataBlock) ExtMetadataBlock {
	switch v := b.(type) {
	case *BlockLevel1:
		c := *v
		return &c
	case *BlockLevel2:
		c := *v
		return &c
	case *BlockLevel3:
		c := *v
		return &c
	case *BlockLevel4:
		c := *v
		return &c
	case *BlockLevel5:
		c := *v
		return &c
	case *BlockLevel6:
		c := *v
		return &c
	case *BlockLevel8:
		return v.clone()
	case *BlockLevel9:
		c := *v
		if v.Primaries != nil {
			p := *v.Primaries
			c.Primaries = &p
		}
		return &c
	case *BlockLevel10:
		c := *v
		if v.Primaries != nil {
			p := *v.Primaries
			c.Primaries = &p
		}
		return &c
	case *BlockLevel11:
		c := *v
		return &c
	case *BlockLevel254:
		c := *v
		return &c
	case *BlockLevel255:
		c := *v
		return &c
	case *ReservedBlock:
		c := *v
		c.Data = append([]byte(nil), v.Data...)
		return &c
	}
	return b
}
