package dovi

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/llehouerou/go-dovi/internal/bits"
)

func TestExtBlockRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		ver   cmVersion
		block ExtMetadataBlock
	}{
		{"level 1", cmV29, &BlockLevel1{MinPQ: 0, MaxPQ: 3079, AvgPQ: 819}},
		{"level 2", cmV29, &BlockLevel2{
			TargetMaxPQ: 2081, TrimSlope: defaultTrim, TrimOffset: defaultTrim,
			TrimPower: defaultTrim, TrimChromaWeight: defaultTrim,
			TrimSaturationGain: defaultTrim, MSWeight: -1,
		}},
		{"level 3", cmV40, &BlockLevel3{MinPQOffset: 2048, MaxPQOffset: 2048, AvgPQOffset: 2048}},
		{"level 4", cmV29, &BlockLevel4{AnchorPQ: 1229, AnchorPower: 1638}},
		{"level 5", cmV29, &BlockLevel5{ActiveAreaTopOffset: 276, ActiveAreaBottomOffset: 276}},
		{"level 6", cmV29, &BlockLevel6{
			MaxDisplayMasteringLuminance: 1000, MinDisplayMasteringLuminance: 1,
			MaxContentLightLevel: 3948, MaxFrameAverageLightLevel: 1063,
		}},
		{"level 8 short", cmV40, &BlockLevel8{TargetDisplayIndex: 1, TrimSlope: defaultTrim,
			TrimOffset: defaultTrim, TrimPower: defaultTrim, TrimChromaWeight: defaultTrim,
			TrimSaturationGain: defaultTrim, MSWeight: defaultTrim}},
		{"level 9 index only", cmV40, &BlockLevel9{SourcePrimaryIndex: 0}},
		{"level 9 explicit primaries", cmV40, &BlockLevel9{
			SourcePrimaryIndex: customPrimaryIndex,
			Primaries:          &ColorPrimaries{RedX: 45940, RedY: 19435, WhiteX: 20510, WhiteY: 21571},
		}},
		{"level 10 short", cmV40, &BlockLevel10{TargetDisplayIndex: 48, TargetMaxPQ: 3079}},
		{"level 11", cmV40, &BlockLevel11{ContentType: 1, WhitePoint: 2, ReferenceModeFlag: true}},
		{"level 254", cmV40, &BlockLevel254{DMMode: 0, DMVersionIndex: 2}},
		{"level 255", cmV29, &BlockLevel255{DMRunMode: 1, DMRunVersion: 2, DMDebug: [4]uint8{1, 2, 3, 4}}},
		{"reserved level", cmV29, &ReservedBlock{BlockLevel: 200, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := bits.NewWriter(32)
			if err := writeExtBlock(w, tt.block); err != nil {
				t.Fatalf("writeExtBlock() error = %v", err)
			}
			w.AlignZero()

			got, err := parseExtBlock(bits.NewReader(w.Bytes()), tt.ver)
			if err != nil {
				t.Fatalf("parseExtBlock() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.block) {
				t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, tt.block)
			}
		})
	}
}

func TestParseExtBlockLengthMismatch(t *testing.T) {
	// A level 1 block spans 36 bits and must declare 5 bytes. Declaring
	// 4 means the fields overrun the framing.
	w := bits.NewWriter(16)
	w.WriteUE(4)       // ext_block_length, one byte short
	w.WriteBits(1, 8)  // ext_block_level
	w.WriteBits(0, 36) // min/max/avg PQ
	w.AlignZero()

	if _, err := parseExtBlock(bits.NewReader(w.Bytes()), cmV29); !errors.Is(err, ErrBlockLengthMismatch) {
		t.Errorf("short declared length: error = %v, want ErrBlockLengthMismatch", err)
	}

	// Declaring 6 bytes disagrees with the level's defined size.
	w = bits.NewWriter(16)
	w.WriteUE(6)
	w.WriteBits(1, 8)
	w.WriteBits(0, 48)
	w.AlignZero()

	if _, err := parseExtBlock(bits.NewReader(w.Bytes()), cmV29); !errors.Is(err, ErrBlockLengthMismatch) {
		t.Errorf("long declared length: error = %v, want ErrBlockLengthMismatch", err)
	}
}

func TestParseExtBlockRejectsSetPaddingBit(t *testing.T) {
	w := bits.NewWriter(16)
	w.WriteUE(5)        // correct length for level 1
	w.WriteBits(1, 8)   // ext_block_level
	w.WriteBits(0, 36)  // fields
	w.WriteBits(0xF, 4) // padding must be zero bits
	w.AlignZero()

	if _, err := parseExtBlock(bits.NewReader(w.Bytes()), cmV29); !errors.Is(err, ErrBlockLengthMismatch) {
		t.Errorf("set padding bit: error = %v, want ErrBlockLengthMismatch", err)
	}
}

// A CM v2.9 payload does not define level 3; the parser must fall back
// to an opaque passthrough rather than misinterpret the bits.
func TestParseExtBlockVersionDispatch(t *testing.T) {
	w := bits.NewWriter(16)
	if err := writeExtBlock(w, &BlockLevel3{MinPQOffset: 2048, MaxPQOffset: 2048, AvgPQOffset: 2048}); err != nil {
		t.Fatalf("writeExtBlock() error = %v", err)
	}
	w.AlignZero()

	got, err := parseExtBlock(bits.NewReader(w.Bytes()), cmV29)
	if err != nil {
		t.Fatalf("parseExtBlock() error = %v", err)
	}
	reserved, ok := got.(*ReservedBlock)
	if !ok {
		t.Fatalf("block type = %T, want *ReservedBlock", got)
	}
	if reserved.Level() != 3 || reserved.LengthBytes() != 5 {
		t.Errorf("passthrough block = level %d, %d bytes; want level 3, 5 bytes",
			reserved.Level(), reserved.LengthBytes())
	}
}

func TestBlockLevel8OptionalGroups(t *testing.T) {
	base := func() *BlockLevel8 {
		return &BlockLevel8{TargetDisplayIndex: 1, TrimSlope: defaultTrim,
			TrimOffset: defaultTrim, TrimPower: defaultTrim, TrimChromaWeight: defaultTrim,
			TrimSaturationGain: defaultTrim, MSWeight: defaultTrim}
	}

	midContrast := uint16(2048)
	withMid := base()
	withMid.TargetMidContrast = &midContrast

	sat := [6]uint8{defaultVectorField, defaultVectorField, defaultVectorField,
		defaultVectorField, defaultVectorField, 130}
	withSat := base()
	withSat.SaturationVectors = &sat

	tests := []struct {
		name   string
		block  *BlockLevel8
		length uint64
	}{
		{"required fields only", base(), 10},
		{"with mid contrast", withMid, 12},
		{"with saturation vectors", withSat, 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.block.LengthBytes(); got != tt.length {
				t.Fatalf("LengthBytes() = %d, want %d", got, tt.length)
			}

			w := bits.NewWriter(32)
			if err := writeExtBlock(w, tt.block); err != nil {
				t.Fatalf("writeExtBlock() error = %v", err)
			}
			w.AlignZero()

			got, err := parseExtBlock(bits.NewReader(w.Bytes()), cmV40)
			if err != nil {
				t.Fatalf("parseExtBlock() error = %v", err)
			}
			if got.LengthBytes() != tt.length {
				t.Errorf("parsed LengthBytes() = %d, want %d", got.LengthBytes(), tt.length)
			}
		})
	}
}

func TestDMDataSingletonValidation(t *testing.T) {
	dm := testDMData()
	dm.CMv29 = []ExtMetadataBlock{
		&BlockLevel1{MinPQ: 0, MaxPQ: 3079, AvgPQ: 819},
		&BlockLevel1{MinPQ: 0, MaxPQ: 3079, AvgPQ: 820},
	}
	if err := dm.validate(); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("duplicate level 1: validate() = %v, want ErrInvalidRecord", err)
	}

	// Level 2 repeats per target display and is exempt.
	dm.CMv29 = []ExtMetadataBlock{
		&BlockLevel2{TargetMaxPQ: 2081, MSWeight: 2048},
		&BlockLevel2{TargetMaxPQ: 3079, MSWeight: 2048},
	}
	if err := dm.validate(); err != nil {
		t.Errorf("repeated level 2: validate() = %v, want nil", err)
	}
}

func TestDMDataAddBlock(t *testing.T) {
	dm := testDMData()

	if err := dm.AddBlock(&BlockLevel6{MaxContentLightLevel: 1000}); err != nil {
		t.Fatalf("AddBlock(level 6) error = %v", err)
	}
	if err := dm.AddBlock(&BlockLevel6{MaxContentLightLevel: 2000}); err != nil {
		t.Fatalf("AddBlock(replacement level 6) error = %v", err)
	}
	if n := len(dm.CMv29); n != 1 {
		t.Fatalf("singleton level 6 duplicated: %d blocks", n)
	}
	l6 := dm.CMv29[0].(*BlockLevel6)
	if l6.MaxContentLightLevel != 2000 {
		t.Errorf("MaxContentLightLevel = %d, want replacement value 2000", l6.MaxContentLightLevel)
	}

	// CM v4.0 levels need a CM v4.0 payload.
	if err := dm.AddBlock(&BlockLevel3{}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("AddBlock(level 3) on CM v2.9 stream: error = %v, want ErrInvalidRecord", err)
	}
}

// The alignment padding after num_ext_blocks is always present, even
// when the list is empty. A stream with an empty CM v2.9 list followed
// by a CM v4.0 list depends on it: without the padding the second
// list's count would be read from the middle of a byte.
func TestBlockListEmptyListAlignment(t *testing.T) {
	ref := bits.NewWriter(16)
	ref.WriteUE(0) // num_ext_blocks, CM v2.9
	ref.AlignZero()
	ref.WriteUE(1) // num_ext_blocks, CM v4.0
	ref.AlignZero()
	ref.WriteUE(2)        // ext_block_length
	ref.WriteBits(254, 8) // ext_block_level
	ref.WriteBits(0, 8)   // dm_mode
	ref.WriteBits(2, 8)   // dm_version_index
	ref.AlignZero()

	r := bits.NewReader(ref.Bytes())
	v29, err := parseBlockList(r, cmV29)
	if err != nil {
		t.Fatalf("parseBlockList(CM v2.9) error = %v", err)
	}
	if len(v29) != 0 {
		t.Fatalf("CM v2.9 list: %d blocks, want 0", len(v29))
	}
	v40, err := parseBlockList(r, cmV40)
	if err != nil {
		t.Fatalf("parseBlockList(CM v4.0) error = %v", err)
	}
	want := []ExtMetadataBlock{&BlockLevel254{DMMode: 0, DMVersionIndex: 2}}
	if !reflect.DeepEqual(v40, want) {
		t.Errorf("CM v4.0 list mismatch:\ngot  %+v\nwant %+v", v40, want)
	}

	// The writer emits the same layout.
	w := bits.NewWriter(16)
	if err := writeBlockList(w, nil); err != nil {
		t.Fatalf("writeBlockList(empty) error = %v", err)
	}
	if err := writeBlockList(w, v40); err != nil {
		t.Fatalf("writeBlockList(CM v4.0) error = %v", err)
	}
	w.AlignZero()
	if !bytes.Equal(w.Bytes(), ref.Bytes()) {
		t.Errorf("written layout = %x, want %x", w.Bytes(), ref.Bytes())
	}
}

func TestParseBlockListRejectsOversizedCount(t *testing.T) {
	// A count far beyond the bits actually present must fail before
	// any allocation sized from it.
	w := bits.NewWriter(16)
	w.WriteUE(1 << 32)
	w.AlignZero()

	if _, err := parseBlockList(bits.NewReader(w.Bytes()), cmV29); !errors.Is(err, ErrUnexpectedEndOfData) {
		t.Errorf("oversized block count: error = %v, want ErrUnexpectedEndOfData", err)
	}
}

func TestParseReservedBlockRejectsOversizedLength(t *testing.T) {
	w := bits.NewWriter(16)
	w.WriteUE(1 << 30)  // ext_block_length
	w.WriteBits(200, 8) // reserved ext_block_level
	w.AlignZero()

	if _, err := parseExtBlock(bits.NewReader(w.Bytes()), cmV29); !errors.Is(err, ErrUnexpectedEndOfData) {
		t.Errorf("oversized reserved length: error = %v, want ErrUnexpectedEndOfData", err)
	}
}
