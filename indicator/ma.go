package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SMA returns the trailing simple moving average over w rows. The first w-1
// rows are NaN.
func SMA(values []float64, w int) []float64 {
	return rolling(values, w, func(window []float64) float64 {
		return stat.Mean(window, nil)
	})
}

// EMA returns the exponential moving average with decay 2/(span+1), seeded by
// the first defined value with no adjustment correction. NaN inputs carry the
// previous average forward.
func EMA(values []float64, span int) []float64 {
	out := nans(len(values))
	if span <= 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	prev := math.NaN()
	for idx, v := range values {
		switch {
		case math.IsNaN(v):
			// Carry the previous average.
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[idx] = prev
	}

	return out
}
