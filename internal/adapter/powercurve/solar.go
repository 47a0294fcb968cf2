package powercurve

import "math"

// NormalizeIrradiance scales a GHI window to [0, 1] by its maximum.
// NaN samples are ignored for the maximum and stay NaN. A window whose
// maximum is not positive produces zeros.
func NormalizeIrradiance(ghi []float64) []float64 {
	peak := math.Inf(-1)
	for _, v := range ghi {
		if !math.IsNaN(v) && v > peak {
			peak = v
		}
	}

	out := make([]float64, len(ghi))
	for i, v := range ghi {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case peak > 0:
			out[i] = v / peak
		default:
			out[i] = 0
		}
	}
	return out
}
