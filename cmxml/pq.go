package cmxml

import "math"

// SMPTE ST 2084 perceptual quantizer constants.
const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

// nitsToPQ12 converts an absolute luminance to a 12-bit PQ code
// value.
func nitsToPQ12(nits uint16) uint16 {
	y := float64(nits) / 10000.0
	ym := math.Pow(y, pqM1)
	pq := math.Pow((pqC1+pqC2*ym)/(1+pqC3*ym), pqM2)
	return uint16(math.Round(pq * 4095))
}

// pq12 scales a normalized PQ fraction to a 12-bit code value.
func pq12(v float64) uint16 {
	return clamp12(math.Round(v * 4095))
}

// signal12 maps a [-1, 1] trim value to the 12-bit representation
// centered on 2048.
func signal12(v float64) uint16 {
	return clamp12(math.Round(v*2048 + 2048))
}

// liftGainGamma converts the lift/gain/gamma triple of a trim to the
// slope/offset/power code values the RPU carries.
func liftGainGamma(lift, gain, gamma float64) (slope, offset, power uint16) {
	gamma = math.Max(-1, math.Min(1, gamma))

	slope = clamp12(math.Round(((gain+2)*(1-lift/2)-2)*2048 + 2048))
	offset = clamp12(math.Round((gain+2)*(lift/2)*2048 + 2048))
	power = clamp12(math.Round((2/(1+gamma/2)-2)*2048 + 2048))
	return slope, offset, power
}

func clamp12(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 4095 {
		return 4095
	}
	return uint16(v)
}
