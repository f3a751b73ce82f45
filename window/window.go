// Package window slices scaled feature matrices into fixed length lookback
// windows for model input.
package window

import (
	"fmt"
)

// Window represents nPast consecutive scaled rows and the scaled target value
// of the row that follows them.
type Window struct {
	Values [][]float64
	Next   float64
}

// Build returns every window of nPast rows over the provided matrix rows. The
// window ending before row i pairs with row i's column 0, so a matrix of n rows
// yields max(0, n - nPast) windows in order.
func Build(rows [][]float64, nPast int) ([]Window, error) {
	if nPast <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", nPast)
	}

	if len(rows) <= nPast {
		return []Window{}, nil
	}

	width := len(rows[0])
	for idx := range rows {
		if len(rows[idx]) != width {
			return nil, fmt.Errorf("row %d has width %d, expected %d", idx, len(rows[idx]), width)
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("rows have no columns")
	}

	windows := make([]Window, 0, len(rows)-nPast)
	for idx := nPast; idx < len(rows); idx++ {
		windows = append(windows, Window{
			Values: rows[idx-nPast : idx],
			Next:   rows[idx][0],
		})
	}

	return windows, nil
}

// Tensor stacks the window values into a windows x nPast x features tensor.
func Tensor(windows []Window) [][][]float64 {
	out := make([][][]float64, len(windows))
	for idx := range windows {
		out[idx] = windows[idx].Values
	}

	return out
}

// Targets returns the next-row target of every window.
func Targets(windows []Window) []float64 {
	out := make([]float64, len(windows))
	for idx := range windows {
		out[idx] = windows[idx].Next
	}

	return out
}
