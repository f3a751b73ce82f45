package feature

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Scaler represents a fitted per-column min-max scaler. A scaler belongs to the
// run and target it was fit for.
type Scaler struct {
	Min []float64
	Max []float64
}

// NewScaler initializes a scaler from known per-column bounds.
func NewScaler(min []float64, max []float64) (*Scaler, error) {
	if len(min) == 0 {
		return nil, fmt.Errorf("scaler needs at least one column")
	}
	if len(min) != len(max) {
		return nil, fmt.Errorf("scaler bounds mismatch: %d mins, %d maxes", len(min), len(max))
	}

	return &Scaler{Min: min, Max: max}, nil
}

// FitScaler fits a scaler over every row of the provided matrix rows.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("cannot fit a scaler over no rows")
	}

	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("cannot fit a scaler over zero width rows")
	}

	column := make([]float64, len(rows))
	min := make([]float64, width)
	max := make([]float64, width)
	for col := 0; col < width; col++ {
		for row := range rows {
			if len(rows[row]) != width {
				return nil, fmt.Errorf("row %d has width %d, expected %d", row, len(rows[row]), width)
			}
			column[row] = rows[row][col]
		}
		min[col] = floats.Min(column)
		max[col] = floats.Max(column)
	}

	return &Scaler{Min: min, Max: max}, nil
}

// Width returns the number of columns the scaler was fit on.
func (s *Scaler) Width() int {
	return len(s.Min)
}

// span returns the fitted range of the column, treating a zero range as one
// so constant columns scale to zero and still invert exactly.
func (s *Scaler) span(col int) float64 {
	r := s.Max[col] - s.Min[col]
	if r == 0 {
		return 1
	}

	return r
}

// apply maps fn over every cell of the provided rows.
func (s *Scaler) apply(rows [][]float64, fn func(v float64, col int) float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for idx := range rows {
		if len(rows[idx]) != s.Width() {
			return nil, fmt.Errorf("row %d has width %d, scaler expects %d", idx, len(rows[idx]), s.Width())
		}

		out[idx] = make([]float64, s.Width())
		for col, v := range rows[idx] {
			out[idx][col] = fn(v, col)
		}
	}

	return out, nil
}

// Transform scales rows into the unit range using (x - min) / (max - min).
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	return s.apply(rows, func(v float64, col int) float64 {
		return (v - s.Min[col]) / s.span(col)
	})
}

// InverseTransform maps scaled rows back using x * (max - min) + min.
func (s *Scaler) InverseTransform(rows [][]float64) ([][]float64, error) {
	return s.apply(rows, func(v float64, col int) float64 {
		return v*s.span(col) + s.Min[col]
	})
}
