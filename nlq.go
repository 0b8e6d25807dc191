package dovi

import "github.com/llehouerou/go-dovi/internal/bits"

// NLQ de-quantization methods.
const (
	NLQLinearDeadzone = 0
	NLQMuLaw          = 1
)

// NLQData holds the non-linear de-quantization parameters needed to
// reconstruct a residual enhancement layer. Present only for
// dual-layer profiles; always absent on single-layer RPUs.
type NLQData struct {
	MethodIdc       uint8      `json:"nlq_method_idc"`
	NumPivotsMinus2 uint8      `json:"nlq_num_pivots_minus2"`
	PredPivotValues [2]uint64  `json:"nlq_pred_pivot_value"`

	Offset      [numComponents]uint64 `json:"nlq_offset"`
	VDRInMaxInt [numComponents]uint64 `json:"vdr_in_max_int"`
	VDRInMax    [numComponents]uint64 `json:"vdr_in_max"`

	// Linear deadzone parameters, meaningful when MethodIdc is
	// NLQLinearDeadzone.
	DeadzoneSlopeInt     [numComponents]uint64 `json:"linear_deadzone_slope_int"`
	DeadzoneSlope        [numComponents]uint64 `json:"linear_deadzone_slope"`
	DeadzoneThresholdInt [numComponents]uint64 `json:"linear_deadzone_threshold_int"`
	DeadzoneThreshold    [numComponents]uint64 `json:"linear_deadzone_threshold"`
}

// parseSignalling reads the method and prediction pivots coded inside
// the mapping structure, ahead of the partition counts.
func (n *NLQData) parseSignalling(r *bits.Reader, h *Header) error {
	v, err := r.ReadBits(3)
	if err != nil {
		return err
	}
	n.MethodIdc = uint8(v)

	// The pivot count is not coded; the format defines a single NLQ
	// segment, so only the two bounding pivots follow.
	n.NumPivotsMinus2 = 0

	pivotWidth := h.BLBitDepth()
	for i := range n.PredPivotValues {
		if n.PredPivotValues[i], err = r.ReadBits(pivotWidth); err != nil {
			return err
		}
	}
	return nil
}

func (n *NLQData) writeSignalling(w *bits.Writer, h *Header) {
	w.WriteBits(uint64(n.MethodIdc), 3)

	pivotWidth := h.BLBitDepth()
	for _, pv := range n.PredPivotValues {
		w.WriteBits(pv, pivotWidth)
	}
}

// parseParams reads the per-component de-quantization parameters that
// follow the mapping curves.
func (n *NLQData) parseParams(r *bits.Reader, h *Header) error {
	offsetWidth := h.ELBitDepth()
	coefWidth := uint(h.CoefficientLog2Denom)
	var err error

	for cmp := 0; cmp < numComponents; cmp++ {
		if n.Offset[cmp], err = r.ReadBits(offsetWidth); err != nil {
			return err
		}
		if n.VDRInMaxInt[cmp], err = r.ReadUE(); err != nil {
			return err
		}
		if n.VDRInMax[cmp], err = r.ReadBits(coefWidth); err != nil {
			return err
		}

		if n.MethodIdc == NLQLinearDeadzone {
			if n.DeadzoneSlopeInt[cmp], err = r.ReadUE(); err != nil {
				return err
			}
			if n.DeadzoneSlope[cmp], err = r.ReadBits(coefWidth); err != nil {
				return err
			}
			if n.DeadzoneThresholdInt[cmp], err = r.ReadUE(); err != nil {
				return err
			}
			if n.DeadzoneThreshold[cmp], err = r.ReadBits(coefWidth); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *NLQData) writeParams(w *bits.Writer, h *Header) {
	offsetWidth := h.ELBitDepth()
	coefWidth := uint(h.CoefficientLog2Denom)

	for cmp := 0; cmp < numComponents; cmp++ {
		w.WriteBits(n.Offset[cmp], offsetWidth)
		w.WriteUE(n.VDRInMaxInt[cmp])
		w.WriteBits(n.VDRInMax[cmp], coefWidth)

		if n.MethodIdc == NLQLinearDeadzone {
			w.WriteUE(n.DeadzoneSlopeInt[cmp])
			w.WriteBits(n.DeadzoneSlope[cmp], coefWidth)
			w.WriteUE(n.DeadzoneThresholdInt[cmp])
			w.WriteBits(n.DeadzoneThreshold[cmp], coefWidth)
		}
	}
}

// IsMEL reports whether the parameters describe a minimal enhancement
// layer: all offsets and coefficients at their trivial values, so the
// residual reconstructs to nothing.
func (n *NLQData) IsMEL() bool {
	for cmp := 0; cmp < numComponents; cmp++ {
		if n.Offset[cmp] != 0 || n.VDRInMaxInt[cmp] != 1 || n.VDRInMax[cmp] != 0 {
			return false
		}
		if n.DeadzoneSlopeInt[cmp] != 0 || n.DeadzoneSlope[cmp] != 0 ||
			n.DeadzoneThresholdInt[cmp] != 0 || n.DeadzoneThreshold[cmp] != 0 {
			return false
		}
	}
	return true
}

// melNLQ returns the minimal enhancement layer parameters used when
// rewriting a FEL RPU to MEL.
func melNLQ(h *Header) *NLQData {
	n := &NLQData{
		MethodIdc:       NLQLinearDeadzone,
		PredPivotValues: [2]uint64{0, 1<<h.BLBitDepth() - 1},
	}
	for cmp := 0; cmp < numComponents; cmp++ {
		n.VDRInMaxInt[cmp] = 1
	}
	return n
}

// clone returns an independent copy.
func (n *NLQData) clone() *NLQData {
	c := *n
	return &c
}
