package dovi

import (
	"errors"
	"testing"
)

func testRPU5() *RPU {
	h := testHeader81()
	h.VDRRPUProfile = 0
	h.BLVideoFullRangeFlag = true

	dm := testDMData()
	dm.SignalColorSpace = 2 // IPT
	dm.SignalFullRangeFlag = 2

	rpu := &RPU{
		Header:  h,
		Mapping: identityMapping(h),
		DM:      dm,
		Profile: Profile5,
	}
	// Profile 5 streams reshape with MMR curves; the exact
	// coefficients are irrelevant to the conversion.
	for cmp := 0; cmp < numComponents; cmp++ {
		rpu.Mapping.Curves[cmp].Segments[0] = CurveSegment{
			MappingIdc: MappingMMR,
			MMR: &MMRCurve{
				OrderMinus1: 0,
				ConstantInt: 1,
				CoefInt:     [][]int64{make([]int64, mmrCoefsPerOrder)},
				Coef:        [][]uint64{make([]uint64, mmrCoefsPerOrder)},
			},
		}
	}
	return rpu
}

// reparse runs a conversion result through the codec so the test
// checks what downstream consumers would actually decode.
func reparse(t *testing.T, rpu *RPU) *RPU {
	t.Helper()
	encoded, err := rpu.Encode()
	if err != nil {
		t.Fatalf("Encode() after conversion: %v", err)
	}
	parsed, err := ParseNALUnit(encoded)
	if err != nil {
		t.Fatalf("ParseNALUnit() after conversion: %v", err)
	}
	return parsed
}

func TestConvertProfile7To81(t *testing.T) {
	src := testRPU7()
	src.DM.CMv29 = append(src.DM.CMv29, &BlockLevel255{DMRunMode: 1})
	encodedSrc, err := src.Encode()
	if err != nil {
		t.Fatalf("Encode() source: %v", err)
	}
	src, err = ParseNALUnit(encodedSrc)
	if err != nil {
		t.Fatalf("ParseNALUnit() source: %v", err)
	}

	res, err := Convert(src, Profile81, nil)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !res.NLQRemoved {
		t.Error("NLQRemoved = false, enhancement layer was present")
	}
	if res.RemovedBlocks[255] != 1 {
		t.Errorf("RemovedBlocks[255] = %d, want 1", res.RemovedBlocks[255])
	}

	got := reparse(t, res.RPU)
	if got.Profile != Profile81 {
		t.Errorf("converted profile = %s, want 8.1", got.Profile)
	}
	if got.NLQ != nil {
		t.Error("NLQ survived the conversion")
	}
	if got.DM.FirstBlock(255) != nil {
		t.Error("level 255 block survived the conversion")
	}

	// The source must be untouched.
	if src.NLQ == nil || src.DM.FirstBlock(255) == nil {
		t.Error("Convert() mutated the source record")
	}
}

func TestConvertFELToMEL(t *testing.T) {
	src := testRPU7()
	src.Profile = Profile7
	src.ELType = ELTypeFEL

	res, err := Convert(src, Profile7, nil)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	got := reparse(t, res.RPU)
	if got.Profile != Profile7 {
		t.Errorf("converted profile = %s, want 7", got.Profile)
	}
	if got.ELType != ELTypeMEL {
		t.Errorf("converted ELType = %s, want MEL", got.ELType)
	}
	if src.ELType != ELTypeFEL {
		t.Error("Convert() mutated the source record")
	}
}

func TestConvertProfile5To81(t *testing.T) {
	src := testRPU5()

	res, err := Convert(src, Profile81, nil)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	got := reparse(t, res.RPU)
	if got.Profile != Profile81 {
		t.Errorf("converted profile = %s, want 8.1", got.Profile)
	}
	if got.Header.BLVideoFullRangeFlag {
		t.Error("bl_video_full_range_flag survived the conversion")
	}
	if seg := got.Mapping.Curves[0].Segments[0]; seg.MappingIdc != MappingPolynomial {
		t.Errorf("mapping_idc = %d, want identity polynomial", seg.MappingIdc)
	}
	if got.DM.YCCToRGBCoef != bt2020YCCToRGBCoef {
		t.Errorf("ycc_to_rgb coefficients = %v, want BT.2020", got.DM.YCCToRGBCoef)
	}

	if src.Mapping.Curves[0].Segments[0].MMR == nil {
		t.Error("Convert() mutated the source mapping")
	}
}

func TestConvertOverride(t *testing.T) {
	src := testRPU81()
	override := &ConversionOverride{
		ActiveArea: &BlockLevel5{ActiveAreaTopOffset: 138, ActiveAreaBottomOffset: 138},
		Level6:     &BlockLevel6{MaxDisplayMasteringLuminance: 4000, MaxContentLightLevel: 3948},
	}

	res, err := Convert(src, Profile81, override)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	got := reparse(t, res.RPU)
	l5, ok := got.DM.FirstBlock(5).(*BlockLevel5)
	if !ok || l5.ActiveAreaTopOffset != 138 {
		t.Errorf("level 5 override not applied: %+v", got.DM.FirstBlock(5))
	}
	l6, ok := got.DM.FirstBlock(6).(*BlockLevel6)
	if !ok || l6.MaxDisplayMasteringLuminance != 4000 {
		t.Errorf("level 6 override not applied: %+v", got.DM.FirstBlock(6))
	}
}

// The Profile field on a record is derived state. A hand-built record
// never set it, and an edited one may carry a stale value; conversion
// must work from the header signalling either way.
func TestConvertDerivesProfileFromHeader(t *testing.T) {
	src := testRPU81()
	if src.Profile != ProfileUnknown {
		t.Fatalf("fixture profile = %s, want unset", src.Profile)
	}
	res, err := Convert(src, Profile81, nil)
	if err != nil {
		t.Fatalf("Convert() on unset profile: %v", err)
	}
	if got := reparse(t, res.RPU); got.Profile != Profile81 {
		t.Errorf("converted profile = %s, want 8.1", got.Profile)
	}

	// A stale field must not steer the conversion either.
	src = testRPU7()
	src.Profile = Profile5
	res, err = Convert(src, Profile81, nil)
	if err != nil {
		t.Fatalf("Convert() on stale profile: %v", err)
	}
	got := reparse(t, res.RPU)
	if got.Profile != Profile81 {
		t.Errorf("converted profile = %s, want 8.1", got.Profile)
	}
	if got.NLQ != nil {
		t.Error("NLQ survived a dual to single layer conversion")
	}
}

func TestConvertUnsupported(t *testing.T) {
	tests := []struct {
		name   string
		src    *RPU
		target Profile
	}{
		{"8.1 to 7", testRPU81(), Profile7},
		{"8.1 to 5", testRPU81(), Profile5},
		{"7 to 5", testRPU7(), Profile5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.src.Profile = calculateProfile(tt.src.Header)
			if _, err := Convert(tt.src, tt.target, nil); !errors.Is(err, ErrUnsupportedConversion) {
				t.Errorf("Convert() error = %v, want ErrUnsupportedConversion", err)
			}
		})
	}
}
