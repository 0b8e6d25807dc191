package dovi

import (
	"fmt"

	"github.com/llehouerou/go-dovi/internal/bits"
)

// Mapping curve coding modes, one per curve segment.
const (
	MappingPolynomial = 0
	MappingMMR        = 1
)

// numComponents is the fixed channel count of every mapping; RPUs
// always carry one curve per color component.
const numComponents = 3

// mmrCoefsPerOrder is the number of coefficient pairs per MMR order.
const mmrCoefsPerOrder = 7

// RPUDataMapping holds the per-component tone-mapping curves of a
// frame. It is absent when the header signals reuse of the previous
// frame's curves.
type RPUDataMapping struct {
	VDRRPUID               uint64 `json:"vdr_rpu_id"`
	MappingColorSpace      uint64 `json:"mapping_color_space"`
	MappingChromaFormatIdc uint64 `json:"mapping_chroma_format_idc"`

	NumXPartitionsMinus1 uint64 `json:"num_x_partitions_minus1"`
	NumYPartitionsMinus1 uint64 `json:"num_y_partitions_minus1"`

	Curves [numComponents]MappingCurve `json:"curves"`
}

// MappingCurve is one component's piecewise mapping function. The
// pivot count read from the stream is the source of truth for how
// many pivot values and segments follow.
type MappingCurve struct {
	NumPivotsMinus2 uint64   `json:"num_pivots_minus2"`
	PivotValues     []uint64 `json:"pred_pivot_value"`

	Segments []CurveSegment `json:"segments"`
}

// CurveSegment is the mapping function between two adjacent pivots,
// either a polynomial or an MMR coefficient set depending on
// MappingIdc.
type CurveSegment struct {
	MappingIdc uint64 `json:"mapping_idc"`

	Poly *PolyCurve `json:"poly,omitempty"`
	MMR  *MMRCurve  `json:"mmr,omitempty"`
}

// PolyCurve holds polynomial coefficients as (integer, fractional)
// fixed-point pairs with coefficient_log2_denom fractional bits.
type PolyCurve struct {
	PolyOrderMinus1 uint64   `json:"poly_order_minus1"`
	LinearInterp    bool     `json:"linear_interp_flag"`
	CoefInt         []int64  `json:"poly_coef_int"`
	Coef            []uint64 `json:"poly_coef"`
}

// MMRCurve holds multivariate multiple-regression coefficients.
type MMRCurve struct {
	OrderMinus1 uint8      `json:"mmr_order_minus1"`
	ConstantInt int64      `json:"mmr_constant_int"`
	Constant    uint64     `json:"mmr_constant"`
	CoefInt     [][]int64  `json:"mmr_coef_int"`
	Coef        [][]uint64 `json:"mmr_coef"`
}

// parseMapping decodes the mapping curves. When the header signals a
// residual enhancement layer, the NLQ method and prediction pivots
// are interleaved between the mapping pivots and the partition
// counts; the partially filled NLQData is returned for the caller to
// complete once the per-component NLQ parameters are reached.
func parseMapping(r *bits.Reader, h *Header) (*RPUDataMapping, *NLQData, error) {
	m := &RPUDataMapping{}
	var err error

	if m.VDRRPUID, err = r.ReadUE(); err != nil {
		return nil, nil, err
	}
	if m.MappingColorSpace, err = r.ReadUE(); err != nil {
		return nil, nil, err
	}
	if m.MappingChromaFormatIdc, err = r.ReadUE(); err != nil {
		return nil, nil, err
	}

	pivotWidth := h.BLBitDepth()
	for cmp := 0; cmp < numComponents; cmp++ {
		curve := &m.Curves[cmp]

		if curve.NumPivotsMinus2, err = r.ReadUE(); err != nil {
			return nil, nil, err
		}
		numPivots := int(curve.NumPivotsMinus2) + 2

		curve.PivotValues = make([]uint64, numPivots)
		for i := 0; i < numPivots; i++ {
			if curve.PivotValues[i], err = r.ReadBits(pivotWidth); err != nil {
				return nil, nil, err
			}
		}
	}

	var nlq *NLQData
	if h.residualPresent() {
		nlq = &NLQData{}
		if err := nlq.parseSignalling(r, h); err != nil {
			return nil, nil, err
		}
	}

	if m.NumXPartitionsMinus1, err = r.ReadUE(); err != nil {
		return nil, nil, err
	}
	if m.NumYPartitionsMinus1, err = r.ReadUE(); err != nil {
		return nil, nil, err
	}

	for cmp := 0; cmp < numComponents; cmp++ {
		curve := &m.Curves[cmp]
		numSegments := int(curve.NumPivotsMinus2) + 1

		curve.Segments = make([]CurveSegment, numSegments)
		for i := 0; i < numSegments; i++ {
			if err := parseSegment(r, h, &curve.Segments[i]); err != nil {
				return nil, nil, err
			}
		}
	}

	return m, nlq, nil
}

func parseSegment(r *bits.Reader, h *Header, s *CurveSegment) error {
	var err error
	if s.MappingIdc, err = r.ReadUE(); err != nil {
		return err
	}

	coefWidth := uint(h.CoefficientLog2Denom)

	switch s.MappingIdc {
	case MappingPolynomial:
		p := &PolyCurve{}
		if p.PolyOrderMinus1, err = r.ReadUE(); err != nil {
			return err
		}
		if p.PolyOrderMinus1 == 0 {
			if p.LinearInterp, err = r.ReadBit(); err != nil {
				return err
			}
			if p.LinearInterp {
				return fmt.Errorf("%w: linear interpolation", ErrUnsupportedProfile)
			}
		}

		numCoefs := int(p.PolyOrderMinus1) + 2
		p.CoefInt = make([]int64, numCoefs)
		p.Coef = make([]uint64, numCoefs)
		for i := 0; i < numCoefs; i++ {
			if p.CoefInt[i], err = r.ReadSE(); err != nil {
				return err
			}
			if p.Coef[i], err = r.ReadBits(coefWidth); err != nil {
				return err
			}
		}
		s.Poly = p

	case MappingMMR:
		m := &MMRCurve{}
		v, err := r.ReadBits(2)
		if err != nil {
			return err
		}
		m.OrderMinus1 = uint8(v)
		if m.ConstantInt, err = r.ReadSE(); err != nil {
			return err
		}
		if m.Constant, err = r.ReadBits(coefWidth); err != nil {
			return err
		}

		order := int(m.OrderMinus1) + 1
		m.CoefInt = make([][]int64, order)
		m.Coef = make([][]uint64, order)
		for i := 0; i < order; i++ {
			m.CoefInt[i] = make([]int64, mmrCoefsPerOrder)
			m.Coef[i] = make([]uint64, mmrCoefsPerOrder)
			for j := 0; j < mmrCoefsPerOrder; j++ {
				if m.CoefInt[i][j], err = r.ReadSE(); err != nil {
					return err
				}
				if m.Coef[i][j], err = r.ReadBits(coefWidth); err != nil {
					return err
				}
			}
		}
		s.MMR = m

	default:
		return fmt.Errorf("%w: mapping_idc %d", ErrUnsupportedProfile, s.MappingIdc)
	}

	return nil
}

func (m *RPUDataMapping) write(w *bits.Writer, h *Header, nlq *NLQData) error {
	w.WriteUE(m.VDRRPUID)
	w.WriteUE(m.MappingColorSpace)
	w.WriteUE(m.MappingChromaFormatIdc)

	pivotWidth := h.BLBitDepth()
	for cmp := 0; cmp < numComponents; cmp++ {
		curve := &m.Curves[cmp]

		if len(curve.PivotValues) != int(curve.NumPivotsMinus2)+2 {
			return fmt.Errorf("%w: component %d has %d pivot values, header count implies %d",
				ErrInvalidRecord, cmp, len(curve.PivotValues), curve.NumPivotsMinus2+2)
		}

		w.WriteUE(curve.NumPivotsMinus2)
		for _, pv := range curve.PivotValues {
			w.WriteBits(pv, pivotWidth)
		}
	}

	if h.residualPresent() {
		if nlq == nil {
			return fmt.Errorf("%w: residual enabled but no NLQ data", ErrInvalidRecord)
		}
		nlq.writeSignalling(w, h)
	}

	w.WriteUE(m.NumXPartitionsMinus1)
	w.WriteUE(m.NumYPartitionsMinus1)

	for cmp := 0; cmp < numComponents; cmp++ {
		curve := &m.Curves[cmp]

		if len(curve.Segments) != int(curve.NumPivotsMinus2)+1 {
			return fmt.Errorf("%w: component %d has %d segments, pivot count implies %d",
				ErrInvalidRecord, cmp, len(curve.Segments), curve.NumPivotsMinus2+1)
		}

		for i := range curve.Segments {
			if err := curve.Segments[i].write(w, h); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *CurveSegment) write(w *bits.Writer, h *Header) error {
	w.WriteUE(s.MappingIdc)

	coefWidth := uint(h.CoefficientLog2Denom)

	switch s.MappingIdc {
	case MappingPolynomial:
		p := s.Poly
		if p == nil {
			return fmt.Errorf("%w: polynomial segment without coefficients", ErrInvalidRecord)
		}

		w.WriteUE(p.PolyOrderMinus1)
		if p.PolyOrderMinus1 == 0 {
			w.WriteBit(p.LinearInterp)
		}

		numCoefs := int(p.PolyOrderMinus1) + 2
		if len(p.CoefInt) != numCoefs || len(p.Coef) != numCoefs {
			return fmt.Errorf("%w: polynomial order implies %d coefficients", ErrInvalidRecord, numCoefs)
		}
		for i := 0; i < numCoefs; i++ {
			w.WriteSE(p.CoefInt[i])
			w.WriteBits(p.Coef[i], coefWidth)
		}

	case MappingMMR:
		m := s.MMR
		if m == nil {
			return fmt.Errorf("%w: MMR segment without coefficients", ErrInvalidRecord)
		}

		w.WriteBits(uint64(m.OrderMinus1), 2)
		w.WriteSE(m.ConstantInt)
		w.WriteBits(m.Constant, coefWidth)

		order := int(m.OrderMinus1) + 1
		if len(m.CoefInt) != order || len(m.Coef) != order {
			return fmt.Errorf("%w: MMR order implies %d coefficient rows", ErrInvalidRecord, order)
		}
		for i := 0; i < order; i++ {
			for j := 0; j < mmrCoefsPerOrder; j++ {
				w.WriteSE(m.CoefInt[i][j])
				w.WriteBits(m.Coef[i][j], coefWidth)
			}
		}

	default:
		return fmt.Errorf("%w: mapping_idc %d", ErrInvalidRecord, s.MappingIdc)
	}

	return nil
}

// clone returns an independent deep copy of the mapping.
func (m *RPUDataMapping) clone() *RPUDataMapping {
	c := *m
	for cmp := range c.Curves {
		curve := &c.Curves[cmp]
		curve.PivotValues = append([]uint64(nil), curve.PivotValues...)

		segments := make([]CurveSegment, len(curve.Segments))
		for i, s := range curve.Segments {
			segments[i] = s
			if s.Poly != nil {
				p := *s.Poly
				p.CoefInt = append([]int64(nil), s.Poly.CoefInt...)
				p.Coef = append([]uint64(nil), s.Poly.Coef...)
				segments[i].Poly = &p
			}
			if s.MMR != nil {
				mm := *s.MMR
				mm.CoefInt = make([][]int64, len(s.MMR.CoefInt))
				mm.Coef = make([][]uint64, len(s.MMR.Coef))
				for j := range s.MMR.CoefInt {
					mm.CoefInt[j] = append([]int64(nil), s.MMR.CoefInt[j]...)
				}
				for j := range s.MMR.Coef {
					mm.Coef[j] = append([]uint64(nil), s.MMR.Coef[j]...)
				}
				segments[i].MMR = &mm
			}
		}
		curve.Segments = segments
	}
	return &c
}

// identityMapping returns the single-segment polynomial mapping used
// when replacing profile-specific curves for single-layer output:
// first order polynomial with coefficients 0 and 1.0.
func identityMapping(h *Header) *RPUDataMapping {
	m := &RPUDataMapping{}

	maxPivot := uint64(1)<<h.BLBitDepth() - 1

	for cmp := 0; cmp < numComponents; cmp++ {
		m.Curves[cmp] = MappingCurve{
			NumPivotsMinus2: 0,
			PivotValues:     []uint64{0, maxPivot},
			Segments: []CurveSegment{{
				MappingIdc: MappingPolynomial,
				Poly: &PolyCurve{
					PolyOrderMinus1: 0,
					CoefInt:         []int64{0, 1},
					Coef:            []uint64{0, 0},
				},
			}},
		}
	}

	return m
}
