package indicator

import (
	"math"
)

// TypicalPrice returns (high + low + close) / 3 per row.
func TypicalPrice(high []float64, low []float64, close []float64) []float64 {
	n := len(high)
	low, close = align(low, n), align(close, n)

	out := make([]float64, n)
	for idx := range out {
		out[idx] = (high[idx] + low[idx] + close[idx]) / 3
	}

	return out
}

// VWAP returns the volume weighted average typical price over the trailing w
// rows. A non-positive w accumulates over the full history. Rows with no
// traded volume in the window are NaN.
func VWAP(high []float64, low []float64, close []float64, volume []float64, w int) []float64 {
	n := len(high)
	typical := TypicalPrice(high, low, close)
	volume = align(volume, n)

	out := nans(n)
	for idx := range out {
		lo := 0
		if w > 0 {
			lo = idx - w + 1
			if lo < 0 {
				continue
			}
		}

		var priceVolume, totalVolume float64
		for j := lo; j <= idx; j++ {
			priceVolume += typical[j] * volume[j]
			totalVolume += volume[j]
		}

		if totalVolume == 0 || math.IsNaN(totalVolume) {
			continue
		}
		out[idx] = priceVolume / totalVolume
	}

	return out
}
