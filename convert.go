package dovi

import "fmt"

// BT.2020 NCL colorimetry constants for the profile 5 to 8.1
// conversion. Profile 5 signals the IPTPQc2 reshaping matrices; a
// profile 8.1 stream carries the standard YCbCr-to-RGB and RGB-to-LMS
// coefficients instead.
var (
	bt2020YCCToRGBCoef   = [9]int16{9574, 0, 13802, 9574, -1540, -5348, 9574, 17610, 0}
	bt2020YCCToRGBOffset = [3]uint32{16777216, 134217728, 134217728}
	bt2020RGBToLMSCoef   = [9]int16{5845, 9702, 837, 2568, 12256, 1561, 0, 679, 15705}
)

// ConversionOverride carries optional metadata replacements applied
// after a profile conversion. Nil fields leave the source blocks
// untouched.
type ConversionOverride struct {
	// ActiveArea replaces every level 5 block with the given offsets.
	ActiveArea *BlockLevel5

	// Level6 replaces the level 6 mastering display block.
	Level6 *BlockLevel6
}

// ConversionResult is the outcome of a profile conversion: the new RPU
// and an account of what the conversion had to discard.
type ConversionResult struct {
	RPU *RPU

	// NLQRemoved reports that the enhancement-layer residual data was
	// stripped.
	NLQRemoved bool

	// RemovedBlocks counts dropped extension blocks by level.
	// Level 255 blocks describe the enhancement layer and cannot
	// survive a conversion to a single-layer profile.
	RemovedBlocks map[uint8]int
}

// Convert derives a new RPU targeting the given profile. The source is
// never mutated; on error no partial result is returned.
//
// Supported conversions:
//   - 7 or 4 to 8.1: strip the enhancement layer
//   - 7 to 7: rewrite a FEL stream as MEL
//   - 5 to 8.1: replace the reshaping mapping with an identity curve
//   - same family to itself: apply overrides only
func Convert(src *RPU, target Profile, override *ConversionOverride) (*ConversionResult, error) {
	if src.Header == nil || src.Header.UsePrevVDRRPU {
		return nil, fmt.Errorf("%w: source carries no mapping of its own", ErrUnsupportedConversion)
	}

	res := &ConversionResult{
		RPU:           src.Clone(),
		RemovedBlocks: map[uint8]int{},
	}
	rpu := res.RPU

	// The profile is re-derived from the header here rather than read
	// from the Profile field, so hand-built records convert the same
	// as parsed ones.
	srcProfile := calculateProfile(src.Header)
	if srcProfile == Profile81 {
		srcProfile = refineSingleLayerProfile(src.Header, src.DM)
	}

	switch {
	case (srcProfile.family() == Profile7 || srcProfile.family() == Profile4) && target.family() == Profile81:
		stripEnhancementLayer(rpu, res)

	case srcProfile.family() == Profile7 && target.family() == Profile7:
		if rpu.NLQ != nil && !rpu.NLQ.IsMEL() {
			rpu.NLQ = melNLQ(rpu.Header)
		}

	case srcProfile == Profile5 && target.family() == Profile81:
		convertIPTToYCC(rpu)

	case srcProfile.family() == target.family():
		// override-only pass

	default:
		return nil, fmt.Errorf("%w: profile %s to %s", ErrUnsupportedConversion, srcProfile, target)
	}

	if err := applyOverride(rpu, override); err != nil {
		return nil, err
	}

	rpu.Profile = calculateProfile(rpu.Header)
	if rpu.Profile == Profile81 {
		rpu.Profile = refineSingleLayerProfile(rpu.Header, rpu.DM)
	}
	switch {
	case rpu.NLQ == nil:
		rpu.ELType = ELTypeNone
	case rpu.NLQ.IsMEL():
		rpu.ELType = ELTypeMEL
	default:
		rpu.ELType = ELTypeFEL
	}
	return res, nil
}

// stripEnhancementLayer rewrites a dual-layer RPU as single layer:
// the residual prediction is disabled, the NLQ data dropped, and the
// enhancement-layer block levels removed.
func stripEnhancementLayer(rpu *RPU, res *ConversionResult) {
	h := rpu.Header
	h.ELSpatialResamplingFilterFlag = false
	h.DisableResidualFlag = true
	h.VDRRPUProfile = 1

	if rpu.NLQ != nil {
		rpu.NLQ = nil
		res.NLQRemoved = true
	}
	if rpu.DM != nil {
		if n := rpu.DM.RemoveLevel(255); n > 0 {
			res.RemovedBlocks[255] = n
		}
	}
	rpu.ELType = ELTypeNone
}

// convertIPTToYCC rewrites a profile 5 RPU for an HDR10-compatible
// base layer: the reshaping curves become an identity mapping and the
// IPTPQc2 matrices are replaced with BT.2020 colorimetry.
func convertIPTToYCC(rpu *RPU) {
	h := rpu.Header
	h.VDRRPUProfile = 1
	h.BLVideoFullRangeFlag = false

	rpu.Mapping = identityMapping(h)

	if rpu.DM != nil {
		dm := rpu.DM
		dm.YCCToRGBCoef = bt2020YCCToRGBCoef
		dm.YCCToRGBOffset = bt2020YCCToRGBOffset
		dm.RGBToLMSCoef = bt2020RGBToLMSCoef
		dm.SignalColorSpace = 0
		dm.SignalFullRangeFlag = 1
	}
}

func applyOverride(rpu *RPU, override *ConversionOverride) error {
	if override == nil {
		return nil
	}
	if rpu.DM == nil {
		return fmt.Errorf("%w: override requires dm metadata", ErrInvalidRecord)
	}
	if override.ActiveArea != nil {
		rpu.DM.RemoveLevel(5)
		b := *override.ActiveArea
		if err := rpu.DM.AddBlock(&b); err != nil {
			return err
		}
	}
	if override.Level6 != nil {
		b := *override.Level6
		if err := rpu.DM.AddBlock(&b); err != nil {
			return err
		}
	}
	return nil
}
