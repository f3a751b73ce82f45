package prediction

import (
	"fmt"
	"math"

	"github.com/dnldd/stocksense/shared"
)

// Insight represents the headline comparison of the next forecast price
// against the last actual price.
type Insight struct {
	LastActual    float64
	Next          float64
	PercentChange float64
}

// NewInsight compares the first forecast day against the last actual close.
func NewInsight(lastActual float64, days []Day) (Insight, error) {
	if len(days) == 0 {
		return Insight{}, fmt.Errorf("no forecast days: %w", shared.ErrNotEnoughData)
	}
	if lastActual == 0 || math.IsNaN(lastActual) || math.IsInf(lastActual, 0) {
		return Insight{}, fmt.Errorf("invalid last actual price %v: %w", lastActual, shared.ErrNotEnoughData)
	}

	next := days[0].Price
	return Insight{
		LastActual:    lastActual,
		Next:          next,
		PercentChange: (next - lastActual) / lastActual * 100,
	}, nil
}

// Direction describes the move of the insight.
func (i Insight) Direction() string {
	switch {
	case i.PercentChange > 0:
		return "up"
	case i.PercentChange < 0:
		return "down"
	default:
		return "flat"
	}
}
