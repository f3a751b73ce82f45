// Package indicator computes derived series from canonical OHLCV columns.
//
// Every function is pure and returns a series the same length as its first
// input. Rows without enough history are NaN, and numeric degenerates such as
// a zero division propagate as NaN or Inf rather than errors.
package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// nans returns a series of n NaN values.
func nans(n int) []float64 {
	out := make([]float64, n)
	for idx := range out {
		out[idx] = math.NaN()
	}

	return out
}

// align returns values sized to n, padding missing trailing cells with NaN.
func align(values []float64, n int) []float64 {
	if len(values) == n {
		return values
	}

	out := nans(n)
	copy(out, values)
	return out
}

// hasNaN reports whether any of the provided values is NaN.
func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

// rolling applies fn over every trailing window of size w. Rows before the
// first full window, and windows holding a NaN, are NaN.
func rolling(values []float64, w int, fn func(window []float64) float64) []float64 {
	out := nans(len(values))
	if w <= 0 {
		return out
	}

	for idx := w - 1; idx < len(values); idx++ {
		window := values[idx-w+1 : idx+1]
		if hasNaN(window) {
			continue
		}
		out[idx] = fn(window)
	}

	return out
}

// RollingStdDev returns the trailing sample standard deviation over w rows.
func RollingStdDev(values []float64, w int) []float64 {
	return rolling(values, w, func(window []float64) float64 {
		return stat.StdDev(window, nil)
	})
}
