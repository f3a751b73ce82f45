package chart

import (
	"fmt"
	"math"
	"time"
)

// View represents a named chart of dashboard series.
type View string

const (
	ViewOpenClose View = "open-close"
	ViewHighLow   View = "high-low"
	ViewVolume    View = "volume"
	ViewOBV       View = "obv"
	ViewSMAEMA    View = "sma-ema"
	ViewRSI       View = "rsi"
	ViewBollinger View = "bollinger"
	ViewVWAP      View = "vwap"
)

// viewSeries lists the series plotted by each view in draw order.
var viewSeries = map[View][]string{
	ViewOpenClose: {SeriesOpen, SeriesClose},
	ViewHighLow:   {SeriesHigh, SeriesLow},
	ViewVolume:    {SeriesVolume},
	ViewOBV:       {SeriesOBV},
	ViewSMAEMA:    {SeriesClose, SeriesSMA50, SeriesSMA200, SeriesEMA50, SeriesEMA200},
	ViewRSI:       {SeriesRSI},
	ViewBollinger: {SeriesClose, SeriesBBMid, SeriesBBUpper, SeriesBBLower},
	ViewVWAP:      {SeriesClose, SeriesVWAP},
}

// Views returns every supported view.
func Views() []View {
	return []View{ViewOpenClose, ViewHighLow, ViewVolume, ViewOBV, ViewSMAEMA, ViewRSI, ViewBollinger, ViewVWAP}
}

// ParseView returns the view with the provided name.
func ParseView(name string) (View, error) {
	v := View(name)
	if _, ok := viewSeries[v]; !ok {
		return "", fmt.Errorf("unknown chart view '%s'", name)
	}

	return v, nil
}

// Line represents a plotted series. Undefined points are nil.
type Line struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Chart represents a view rendered from a dashboard table.
type Chart struct {
	Symbol string      `json:"symbol"`
	View   View        `json:"view"`
	Dates  []time.Time `json:"dates"`
	Lines  []Line      `json:"lines"`
}

// nullable converts NaN and Inf points to nil.
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for idx := range values {
		v := values[idx]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[idx] = &v
	}

	return out
}

// Render selects the series of the provided view.
func (t *Table) Render(v View) (*Chart, error) {
	names, ok := viewSeries[v]
	if !ok {
		return nil, fmt.Errorf("unknown chart view '%s'", v)
	}

	chart := &Chart{
		Symbol: t.Symbol,
		View:   v,
		Dates:  t.Dates,
		Lines:  make([]Line, 0, len(names)),
	}

	for _, name := range names {
		values, ok := t.Series[name]
		if !ok {
			return nil, fmt.Errorf("table has no %s series", name)
		}
		chart.Lines = append(chart.Lines, Line{Name: name, Values: nullable(values)})
	}

	return chart, nil
}
