// Package ohlcv maps raw price tables onto the canonical daily OHLCV schema.
package ohlcv

import (
	"time"
)

// Bar represents a unit daily price record.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   uint64
}

// Series represents daily bars ordered by strictly increasing date.
type Series []Bar

// Dates returns the date of every bar.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for idx := range s {
		out[idx] = s[idx].Date
	}

	return out
}

// column extracts a float column from the series.
func (s Series) column(fn func(b *Bar) float64) []float64 {
	out := make([]float64, len(s))
	for idx := range s {
		out[idx] = fn(&s[idx])
	}

	return out
}

// Opens returns the open prices.
func (s Series) Opens() []float64 { return s.column(func(b *Bar) float64 { return b.Open }) }

// Highs returns the high prices.
func (s Series) Highs() []float64 { return s.column(func(b *Bar) float64 { return b.High }) }

// Lows returns the low prices.
func (s Series) Lows() []float64 { return s.column(func(b *Bar) float64 { return b.Low }) }

// Closes returns the close prices.
func (s Series) Closes() []float64 { return s.column(func(b *Bar) float64 { return b.Close }) }

// AdjCloses returns the adjusted close prices.
func (s Series) AdjCloses() []float64 { return s.column(func(b *Bar) float64 { return b.AdjClose }) }

// Volumes returns the traded volumes as floats.
func (s Series) Volumes() []float64 { return s.column(func(b *Bar) float64 { return float64(b.Volume) }) }

// Last returns the most recent bar.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}

	return s[len(s)-1], true
}

// Since returns the bars dated on or after the provided time.
func (s Series) Since(start time.Time) Series {
	for idx := range s {
		if !s[idx].Date.Before(start) {
			return s[idx:]
		}
	}

	return Series{}
}
