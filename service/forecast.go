package service

import (
	"time"

	"github.com/dnldd/stocksense/prediction"
	"github.com/shopspring/decimal"
)

const (
	// pricePlaces is the number of decimal places prices are reported with.
	pricePlaces = 2
	// percentPlaces is the number of decimal places percent changes are reported with.
	percentPlaces = 2
)

// Forecast represents the outcome of a forecasting run for a target.
type Forecast struct {
	ID            string
	Target        string
	Symbol        string
	Days          []prediction.Day
	LastActual    float64
	PercentChange float64
	Direction     string
	GeneratedAt   time.Time
}

// DayView represents a rounded forecast day.
type DayView struct {
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

// ForecastView represents a forecast rounded for display.
type ForecastView struct {
	ID            string          `json:"id"`
	Target        string          `json:"target"`
	Symbol        string          `json:"symbol"`
	Days          []DayView       `json:"days"`
	LastActual    decimal.Decimal `json:"lastActual"`
	Next          decimal.Decimal `json:"next"`
	PercentChange decimal.Decimal `json:"percentChange"`
	Direction     string          `json:"direction"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// View rounds the forecast for display.
func (f *Forecast) View() ForecastView {
	days := make([]DayView, len(f.Days))
	for idx := range f.Days {
		days[idx] = DayView{
			Label: f.Days[idx].Label,
			Price: decimal.NewFromFloat(f.Days[idx].Price).Round(pricePlaces),
		}
	}

	var next decimal.Decimal
	if len(days) > 0 {
		next = days[0].Price
	}

	return ForecastView{
		ID:            f.ID,
		Target:        f.Target,
		Symbol:        f.Symbol,
		Days:          days,
		LastActual:    decimal.NewFromFloat(f.LastActual).Round(pricePlaces),
		Next:          next,
		PercentChange: decimal.NewFromFloat(f.PercentChange).Round(percentPlaces),
		Direction:     f.Direction,
		GeneratedAt:   f.GeneratedAt,
	}
}
