package dovi

// Profile identifies a Dolby Vision profile family as signalled by the
// RPU header.
type Profile uint8

// Profile families.
const (
	ProfileUnknown Profile = 0
	Profile4       Profile = 4 // Dual layer, SDR base layer
	Profile5       Profile = 5 // Single layer, IPTPQc2
	Profile7       Profile = 7 // Dual layer, HDR10 base layer
	Profile81      Profile = 81 // Single layer, HDR10 base layer
	Profile82      Profile = 82 // Single layer, SDR base layer
	Profile84      Profile = 84 // Single layer, HLG base layer
)

// String returns the profile in its conventional dotted notation.
func (p Profile) String() string {
	switch p {
	case Profile4:
		return "4"
	case Profile5:
		return "5"
	case Profile7:
		return "7"
	case Profile81:
		return "8.1"
	case Profile82:
		return "8.2"
	case Profile84:
		return "8.4"
	default:
		return "unknown"
	}
}

// IsDualLayer reports whether the profile carries an enhancement layer.
func (p Profile) IsDualLayer() bool {
	return p == Profile4 || p == Profile7
}

// family collapses the single-layer 8.x profiles to one conversion
// state; the converter treats 8.1/8.2/8.4 as a single family.
func (p Profile) family() Profile {
	switch p {
	case Profile81, Profile82, Profile84:
		return Profile81
	default:
		return p
	}
}

// ELType identifies the enhancement-layer variant of a dual-layer
// profile.
type ELType uint8

// Enhancement layer types.
const (
	ELTypeNone ELType = iota // single layer, no NLQ data
	ELTypeMEL                // Minimal Enhancement Layer
	ELTypeFEL                // Full Enhancement Layer
)

// String implements fmt.Stringer.
func (e ELType) String() string {
	switch e {
	case ELTypeMEL:
		return "MEL"
	case ELTypeFEL:
		return "FEL"
	default:
		return "none"
	}
}

// calculateProfile derives the profile family from decoded header
// flags. rpu_type 2 is the only type carrying VDR data; anything else
// has no defined profile.
func calculateProfile(h *Header) Profile {
	if h.RPUType != 2 {
		return ProfileUnknown
	}

	if h.ELSpatialResamplingFilterFlag && !h.DisableResidualFlag {
		if h.VDRRPUProfile == 0 {
			return Profile4
		}
		return Profile7
	}

	if h.VDRRPUProfile == 0 && h.BLVideoFullRangeFlag {
		return Profile5
	}

	return Profile81
}

// refineSingleLayerProfile splits the profile 8 family using the DM
// signal description. The RPU header alone cannot distinguish 8.1,
// 8.2 and 8.4; the base-layer signal info can:
//   - full-range BL video is the SDR variant (8.2)
//   - the HLG source PQ range (62..3696) is the HLG variant (8.4)
//   - everything else is 8.1
func refineSingleLayerProfile(h *Header, dm *DMData) Profile {
	if h.BLVideoFullRangeFlag {
		return Profile82
	}
	if dm != nil && dm.SourceMinPQ == 62 && dm.SourceMaxPQ == 3696 {
		return Profile84
	}
	return Profile81
}
