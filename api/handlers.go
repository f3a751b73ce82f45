package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/stocksense/chart"
	"github.com/dnldd/stocksense/indicator"
	"github.com/dnldd/stocksense/ohlcv"
	"github.com/dnldd/stocksense/service"
	"github.com/dnldd/stocksense/shared"
	"github.com/gin-gonic/gin"
)

const (
	// defaultHistoryLimit is the number of forecasts returned when no limit is given.
	defaultHistoryLimit = 10
)

// errorStatus maps a pipeline error to a response status and message.
func errorStatus(err error) (int, string) {
	var schemaErr *shared.SchemaError

	switch {
	case errors.Is(err, service.ErrUnknownTarget):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shared.ErrNotEnoughData):
		return http.StatusUnprocessableEntity, shared.ErrNotEnoughData.Error()
	case errors.As(err, &schemaErr):
		return http.StatusBadGateway, schemaErr.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// targetView represents a forecast target in responses.
type targetView struct {
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Features []string `json:"features"`
	LookBack int      `json:"lookBack"`
}

func (s *Server) getTargets(c *gin.Context) {
	targets := s.cfg.Forecasts.Targets()
	views := make([]targetView, len(targets))
	for idx := range targets {
		views[idx] = targetView{
			Name:     targets[idx].Name,
			Symbol:   targets[idx].Symbol,
			Features: targets[idx].ColumnNames(),
			LookBack: targets[idx].LookBack,
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) getForecast(c *gin.Context) {
	fc, err := s.cfg.Forecasts.Forecast(c.Request.Context(), c.Param("target"))
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, fc.View())
}

func (s *Server) getHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	history, err := s.cfg.Forecasts.History(c.Param("target"), limit)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	views := make([]service.ForecastView, len(history))
	for idx := range history {
		views[idx] = history[idx].View()
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) getStocks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.cfg.Tickers})
}

func (s *Server) getChart(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if !s.tickers[symbol] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ticker " + symbol})
		return
	}

	view, err := chart.ParseView(c.Param("view"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := chart.Options{Start: chart.DefaultStart, Lower: s.cfg.Lower}
	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse(shared.DateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be formatted as " + shared.DateLayout})
			return
		}
		opts.Start = start
	}
	switch c.Query("lower") {
	case "":
	case indicator.LegacyLower.String():
		opts.Lower = indicator.LegacyLower
	case indicator.SymmetricLower.String():
		opts.Lower = indicator.SymmetricLower
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "lower must be symmetric or legacy"})
		return
	}

	table, err := s.cfg.Source.Fetch(c.Request.Context(), symbol, opts.Start, time.Time{})
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	series, err := ohlcv.Normalize(table)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	dashboard, err := chart.Build(symbol, series, opts)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	rendered, err := dashboard.Render(view)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rendered)
}
