package shared

import (
	"context"
	"time"
)

// DataSource defines the requirements for fetching daily price history.
type DataSource interface {
	// Fetch returns the raw daily price table for the symbol between start and end.
	Fetch(ctx context.Context, symbol string, start time.Time, end time.Time) (*Table, error)
}

// Predictor defines the requirements for a trained sequence model.
type Predictor interface {
	// Predict maps windows shaped [N, n_past, F] to outputs shaped [N, 1].
	Predict(ctx context.Context, windows [][][]float64) ([][]float64, error)
}
