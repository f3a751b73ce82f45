// Package metrics holds the prometheus collectors of the forecasting service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stocksense"

// Metrics holds the forecasting service collectors.
type Metrics struct {
	registry *prometheus.Registry

	// RunsTotal counts forecast runs by target and outcome.
	RunsTotal *prometheus.CounterVec
	// RunDuration observes forecast run latency by target.
	RunDuration *prometheus.HistogramVec
	// PredictDuration observes predictor call latency by target.
	PredictDuration *prometheus.HistogramVec
	// NextPrice tracks the latest next day forecast by target.
	NextPrice *prometheus.GaugeVec
	// PercentChange tracks the latest forecast percent change by target.
	PercentChange *prometheus.GaugeVec
	// LastRefresh is the unix time of the last completed scheduled refresh.
	LastRefresh prometheus.Gauge
	// RequestsTotal counts api requests by route and status.
	RequestsTotal *prometheus.CounterVec
}

// Outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeNotEnough    = "not_enough_data"
	OutcomeSchema       = "schema_error"
	OutcomeFetchFailed  = "fetch_failed"
	OutcomePredictError = "predict_failed"
	OutcomeFailed       = "failed"
)

// NewMetrics creates and registers the service collectors on a dedicated
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_runs_total",
			Help:      "Total forecast runs by target and outcome",
		}, []string{"target", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_run_duration_seconds",
			Help:      "Forecast run latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
		PredictDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_duration_seconds",
			Help:      "Predictor call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
		NextPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_next_price",
			Help:      "Latest next day forecast price",
		}, []string{"target"}),
		PercentChange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_percent_change",
			Help:      "Latest forecast percent change against the last actual close",
		}, []string{"target"}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last completed scheduled refresh",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total api requests by route and status",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PredictDuration,
		m.NextPrice,
		m.PercentChange,
		m.LastRefresh,
		m.RequestsTotal,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler returns the scrape handler of the service registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
