package indicator

import (
	"gonum.org/v1/gonum/floats"
)

const (
	// MACDFast is the conventional fast ema span.
	MACDFast = 12
	// MACDSlow is the conventional slow ema span.
	MACDSlow = 26
	// MACDSignalSpan is the conventional signal line span.
	MACDSignalSpan = 9
)

// MACD returns the difference between the fast and slow exponential moving
// averages of close.
func MACD(close []float64, fast int, slow int) []float64 {
	out := make([]float64, len(close))
	floats.SubTo(out, EMA(close, fast), EMA(close, slow))
	return out
}

// MACDSignal returns the signal line of the provided macd series.
func MACDSignal(macd []float64, span int) []float64 {
	return EMA(macd, span)
}
