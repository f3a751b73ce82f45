package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RSI returns the relative strength index over the provided period using plain
// rolling means of gains and losses. Deltas of the wrong sign, and the
// undefined first delta, contribute zero. RS of 0/0 is NaN and x/0 yields 100.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for idx := 1; idx < n; idx++ {
		delta := close[idx] - close[idx-1]
		switch {
		case math.IsNaN(delta):
			// Counts as no movement.
		case delta > 0:
			gains[idx] = delta
		case delta < 0:
			losses[idx] = -delta
		}
	}

	avgGain := rolling(gains, period, func(window []float64) float64 { return stat.Mean(window, nil) })
	avgLoss := rolling(losses, period, func(window []float64) float64 { return stat.Mean(window, nil) })

	out := nans(n)
	for idx := range out {
		rs := avgGain[idx] / avgLoss[idx]
		out[idx] = 100 - 100/(1+rs)
	}

	return out
}
