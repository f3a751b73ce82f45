package prediction

import (
	"context"
	"fmt"

	"github.com/dnldd/stocksense/shared"
)

// PredictorFunc adapts a function into a predictor.
type PredictorFunc func(ctx context.Context, windows [][][]float64) ([][]float64, error)

// Ensure PredictorFunc implements the Predictor interface.
var _ shared.Predictor = (PredictorFunc)(nil)

// Predict calls f(ctx, windows).
func (f PredictorFunc) Predict(ctx context.Context, windows [][][]float64) ([][]float64, error) {
	return f(ctx, windows)
}

// Persistence is an offline predictor that forecasts the last scaled target
// value of each window.
type Persistence struct{}

// Ensure Persistence implements the Predictor interface.
var _ shared.Predictor = (*Persistence)(nil)

// Predict returns the column 0 value of the final row of every window.
func (p *Persistence) Predict(ctx context.Context, windows [][][]float64) ([][]float64, error) {
	out := make([][]float64, len(windows))
	for idx, w := range windows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if len(w) == 0 || len(w[len(w)-1]) == 0 {
			return nil, fmt.Errorf("window %d is empty", idx)
		}
		out[idx] = []float64{w[len(w)-1][0]}
	}

	return out, nil
}
