// Package prediction decodes scaled model outputs back into prices and
// provides the predictor adapters the forecaster runs against.
package prediction

import (
	"fmt"

	"github.com/dnldd/stocksense/feature"
	"github.com/dnldd/stocksense/shared"
)

// Horizon is the maximum number of forecast days reported.
const Horizon = 5

// dayLabels are the horizon labels in forecast order.
var dayLabels = [Horizon]string{"Tomorrow", "2nd Day", "3rd Day", "4th Day", "5th Day"}

// Day represents a labelled forecast price.
type Day struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// Decode maps raw scaled predictions shaped [N, 1] back into adjusted close
// prices. Each scalar is broadcast across every scaler column to form a full
// width row, the row is inverse transformed and column 0 is kept. Only the
// first min(Horizon, N) predictions are returned.
func Decode(raw [][]float64, sc *feature.Scaler) ([]Day, error) {
	if len(raw) == 0 {
		return nil, &shared.EmptyPredictionError{}
	}
	if sc == nil {
		return nil, fmt.Errorf("no scaler provided for decoding")
	}

	n := min(Horizon, len(raw))
	rows := make([][]float64, n)
	for idx := 0; idx < n; idx++ {
		if len(raw[idx]) == 0 {
			return nil, fmt.Errorf("prediction row %d is empty", idx)
		}

		row := make([]float64, sc.Width())
		for col := range row {
			row[col] = raw[idx][0]
		}
		rows[idx] = row
	}

	prices, err := sc.InverseTransform(rows)
	if err != nil {
		return nil, fmt.Errorf("inverse scaling predictions: %w", err)
	}

	days := make([]Day, n)
	for idx := range days {
		days[idx] = Day{Label: dayLabels[idx], Price: prices[idx][0]}
	}

	return days, nil
}
