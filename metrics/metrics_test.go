package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	// Ensure collectors record by label.
	m.RunsTotal.WithLabelValues("apple", OutcomeSuccess).Inc()
	m.RunsTotal.WithLabelValues("apple", OutcomeSuccess).Inc()
	m.RunsTotal.WithLabelValues("google", OutcomeNotEnough).Inc()
	m.NextPrice.WithLabelValues("apple").Set(231.5)

	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("apple", OutcomeSuccess)), 2.0)
	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("google", OutcomeNotEnough)), 1.0)
	assert.Equal(t, testutil.ToFloat64(m.NextPrice.WithLabelValues("apple")), 231.5)

	// Ensure separate instances do not share a registry.
	other := NewMetrics()
	assert.Equal(t, testutil.ToFloat64(other.RunsTotal.WithLabelValues("apple", OutcomeSuccess)), 0.0)

	// Ensure the scrape handler exposes the service collectors.
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	assert.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `stocksense_forecast_runs_total{outcome="success",target="apple"} 2`))
	assert.True(t, strings.Contains(string(body), "stocksense_forecast_next_price"))
}
