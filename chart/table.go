// Package chart builds the dashboard indicator table for a symbol and the
// named chart views selected from it.
package chart

import (
	"fmt"
	"time"

	"github.com/dnldd/stocksense/indicator"
	"github.com/dnldd/stocksense/ohlcv"
	"github.com/dnldd/stocksense/shared"
)

// Dashboard series names.
const (
	SeriesOpen     = "open"
	SeriesHigh     = "high"
	SeriesLow      = "low"
	SeriesClose    = "close"
	SeriesAdjClose = "adj_close"
	SeriesVolume   = "volume"
	SeriesOBV      = "obv"
	SeriesSMA50    = "sma_50"
	SeriesSMA200   = "sma_200"
	SeriesEMA50    = "ema_50"
	SeriesEMA200   = "ema_200"
	SeriesRSI      = "rsi_14"
	SeriesBBMid    = "bb_mid"
	SeriesBBUpper  = "bb_upper"
	SeriesBBLower  = "bb_lower"
	SeriesVWAP     = "vwap_20"
)

const (
	shortWindow   = 50
	longWindow    = 200
	rsiPeriod     = 14
	bollWindow    = 20
	bollDeviation = 2
	vwapWindow    = 20
)

// DefaultStart is the default first dashboard date.
var DefaultStart = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

// Tickers are the symbols tracked on the dashboard.
var Tickers = []string{"AAPL", "AMZN", "AMD", "GOOGL", "INTC", "META", "MSFT", "NVDA", "TSLA"}

// Options represents the dashboard table options.
type Options struct {
	// Start is the first date of history included. Defaults to DefaultStart.
	Start time.Time
	// Lower selects the bollinger lower band policy.
	Lower indicator.LowerBandPolicy
}

// Table represents the dashboard indicator table of a symbol.
type Table struct {
	Symbol string
	Dates  []time.Time
	Series map[string][]float64
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.Dates)
}

// Build computes the dashboard indicators over the history since the start
// date. Indicators use the close price.
func Build(symbol string, s ohlcv.Series, opts Options) (*Table, error) {
	start := opts.Start
	if start.IsZero() {
		start = DefaultStart
	}

	s = s.Since(start)
	if len(s) == 0 {
		return nil, fmt.Errorf("no %s history since %s: %w", symbol,
			start.Format(shared.DateLayout), shared.ErrNotEnoughData)
	}

	closes := s.Closes()
	volumes := s.Volumes()
	bands := indicator.Bollinger(closes, bollWindow, bollDeviation, opts.Lower)

	return &Table{
		Symbol: symbol,
		Dates:  s.Dates(),
		Series: map[string][]float64{
			SeriesOpen:     s.Opens(),
			SeriesHigh:     s.Highs(),
			SeriesLow:      s.Lows(),
			SeriesClose:    closes,
			SeriesAdjClose: s.AdjCloses(),
			SeriesVolume:   volumes,
			SeriesOBV:      indicator.OBV(closes, volumes),
			SeriesSMA50:    indicator.SMA(closes, shortWindow),
			SeriesSMA200:   indicator.SMA(closes, longWindow),
			SeriesEMA50:    indicator.EMA(closes, shortWindow),
			SeriesEMA200:   indicator.EMA(closes, longWindow),
			SeriesRSI:      indicator.RSI(closes, rsiPeriod),
			SeriesBBMid:    bands.Mid,
			SeriesBBUpper:  bands.Upper,
			SeriesBBLower:  bands.Lower,
			SeriesVWAP:     indicator.VWAP(s.Highs(), s.Lows(), closes, volumes, vwapWindow),
		},
	}, nil
}
