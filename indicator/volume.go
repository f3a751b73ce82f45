package indicator

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// OBV returns on-balance volume: the running sum of volume signed by the day
// over day change in close. Unchanged closes and the first row contribute zero.
func OBV(close []float64, volume []float64) []float64 {
	n := len(close)
	volume = align(volume, n)

	out := make([]float64, n)
	var total float64
	for idx := 1; idx < n; idx++ {
		change := close[idx] - close[idx-1]
		switch {
		case change > 0:
			total += volume[idx]
		case change < 0:
			total -= volume[idx]
		}
		out[idx] = total
	}

	return out
}

// DollarVolume returns adjusted close times volume in millions.
func DollarVolume(adjClose []float64, volume []float64) []float64 {
	out := make([]float64, len(adjClose))
	floats.MulTo(out, adjClose, align(volume, len(adjClose)))
	floats.Scale(1/1e6, out)
	return out
}

// gkCoefficient is the open-to-close weighting of the Garman-Klass estimator.
var gkCoefficient = 2*math.Ln2 - 1

// GarmanKlass returns the per-row Garman-Klass volatility estimate.
func GarmanKlass(high []float64, low []float64, adjClose []float64, open []float64) []float64 {
	n := len(high)
	low, adjClose, open = align(low, n), align(adjClose, n), align(open, n)

	out := make([]float64, n)
	for idx := range out {
		hl := math.Log(high[idx]) - math.Log(low[idx])
		co := math.Log(adjClose[idx]) - math.Log(open[idx])
		out[idx] = (hl*hl)/2 - gkCoefficient*(co*co)
	}

	return out
}
