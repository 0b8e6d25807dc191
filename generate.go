package dovi

// NewBaseRPU constructs a profile 8.1 RPU carrying an identity
// reshaping curve and BT.2020 signal colorimetry, ready to receive
// generated display-management blocks. When cmv40 is set the frame
// carries a CM v4.0 section with a default level 254 block, which
// AddBlock replaces once the real one is known.
func NewBaseRPU(cmv40 bool) *RPU {
	h := &Header{
		RPUNALPrefix:         rpuNALPrefix,
		RPUType:              2,
		RPUFormat:            18,
		VDRRPUProfile:        1,
		VDRRPULevel:          6,
		VDRSeqInfoPresent:    true,
		CoefficientLog2Denom: 23,
		BLBitDepthMinus8:     2,
		ELBitDepthMinus8:     2,
		VDRBitDepthMinus8:    4,
		DisableResidualFlag:  true,
		VDRDMMetadataPresent: true,
	}

	dm := &DMData{
		YCCToRGBCoef:        bt2020YCCToRGBCoef,
		YCCToRGBOffset:      bt2020YCCToRGBOffset,
		RGBToLMSCoef:        bt2020RGBToLMSCoef,
		SignalEOTF:          65535,
		SignalBitDepth:      12,
		SignalFullRangeFlag: 1,
		SourceMinPQ:         7,
		SourceMaxPQ:         3079,
		SourceDiagonal:      42,
		CMv29:               []ExtMetadataBlock{},
	}
	if cmv40 {
		dm.CMv40 = []ExtMetadataBlock{
			&BlockLevel254{DMMode: 0, DMVersionIndex: 2},
		}
	}

	return &RPU{
		Profile: Profile81,
		Header:  h,
		Mapping: identityMapping(h),
		DM:      dm,
	}
}
