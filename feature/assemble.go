package feature

import (
	"fmt"

	"github.com/dnldd/stocksense/ohlcv"
	"github.com/dnldd/stocksense/shared"
)

// Dataset represents an assembled target: the cleaned raw matrix, its scaled
// twin and the scaler fit over the raw rows.
type Dataset struct {
	Target Target
	Raw    *Matrix
	Scaled *Matrix
	Scaler *Scaler
}

// LastActual returns the most recent unscaled adjusted close.
func (d *Dataset) LastActual() (float64, bool) {
	if d.Raw.Len() == 0 {
		return 0, false
	}

	return d.Raw.Rows[d.Raw.Len()-1][0], true
}

// Assemble builds the feature matrix for the provided target. Indicators are
// computed over the full history before incomplete rows are dropped, then the
// scaler is fit over the remaining rows.
func Assemble(series ohlcv.Series, target Target) (*Dataset, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("validating target: %w", err)
	}

	columns := make([][]float64, len(target.Columns))
	for idx, c := range target.Columns {
		values, err := c.compute(series)
		if err != nil {
			return nil, fmt.Errorf("computing %s: %w", c, err)
		}
		columns[idx] = values
	}

	full, err := newMatrix(target.ColumnNames(), series.Dates(), columns)
	if err != nil {
		return nil, fmt.Errorf("building %s matrix: %w", target.Name, err)
	}

	raw := DropIncomplete(full)
	required := target.LookBack + 1
	if raw.Len() < required {
		return nil, &shared.InsufficientDataError{Rows: raw.Len(), Required: required}
	}

	scaler, err := FitScaler(raw.Rows)
	if err != nil {
		return nil, fmt.Errorf("fitting %s scaler: %w", target.Name, err)
	}

	rows, err := scaler.Transform(raw.Rows)
	if err != nil {
		return nil, fmt.Errorf("scaling %s matrix: %w", target.Name, err)
	}

	return &Dataset{
		Target: target,
		Raw:    raw,
		Scaled: &Matrix{Columns: raw.Columns, Dates: raw.Dates, Rows: rows},
		Scaler: scaler,
	}, nil
}
