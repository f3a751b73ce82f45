package feature

import (
	"fmt"
	"math"
	"time"
)

// Matrix represents a time ordered feature table.
type Matrix struct {
	Columns []string
	Dates   []time.Time
	Rows    [][]float64
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.Rows)
}

// Width returns the number of columns.
func (m *Matrix) Width() int {
	return len(m.Columns)
}

// Column returns a copy of the column at the provided index.
func (m *Matrix) Column(idx int) ([]float64, error) {
	if idx < 0 || idx >= m.Width() {
		return nil, fmt.Errorf("column index %d out of range [0, %d)", idx, m.Width())
	}

	out := make([]float64, len(m.Rows))
	for row := range m.Rows {
		out[row] = m.Rows[row][idx]
	}

	return out, nil
}

// newMatrix concatenates the provided equal length columns horizontally.
func newMatrix(names []string, dates []time.Time, columns [][]float64) (*Matrix, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("got %d column names for %d columns", len(names), len(columns))
	}

	for idx := range columns {
		if len(columns[idx]) != len(dates) {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", names[idx], len(columns[idx]), len(dates))
		}
	}

	rows := make([][]float64, len(dates))
	for row := range rows {
		rows[row] = make([]float64, len(columns))
		for col := range columns {
			rows[row][col] = columns[col][row]
		}
	}

	return &Matrix{Columns: names, Dates: dates, Rows: rows}, nil
}

// complete reports whether every cell in the row is a finite number.
func complete(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// DropIncomplete returns a matrix without the rows holding NaN or Inf cells.
func DropIncomplete(m *Matrix) *Matrix {
	out := &Matrix{
		Columns: m.Columns,
		Dates:   make([]time.Time, 0, len(m.Dates)),
		Rows:    make([][]float64, 0, len(m.Rows)),
	}

	for idx := range m.Rows {
		if !complete(m.Rows[idx]) {
			continue
		}
		out.Rows = append(out.Rows, m.Rows[idx])
		if idx < len(m.Dates) {
			out.Dates = append(out.Dates, m.Dates[idx])
		}
	}

	return out
}
