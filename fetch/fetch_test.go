package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/stocksense/ohlcv"
	"github.com/dnldd/stocksense/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

const fmpHistory = `{
	"symbol": "AAPL",
	"historical": [
		{"date": "2025-02-05", "open": 228.5, "high": 232.6, "low": 228.2, "close": 232.2, "adjClose": 232.0, "volume": 39620300, "change": 3.7},
		{"date": "2025-02-04", "open": 227.2, "high": 233.1, "low": 226.6, "close": 232.8, "adjClose": 232.6, "volume": 45067300, "change": 5.6}
	]
}`

func TestFMPConfig(t *testing.T) {
	logger := zerolog.New(nil)

	tests := []struct {
		name        string
		cfg         FMPConfig
		errContains []string
	}{
		{name: "valid", cfg: FMPConfig{APIKey: "key", Logger: &logger}},
		{name: "missing key", cfg: FMPConfig{Logger: &logger}, errContains: []string{"api key cannot be an empty string"}},
		{
			name:        "empty",
			cfg:         FMPConfig{},
			errContains: []string{"api key cannot be an empty string", "logger cannot be nil"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.errContains) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			for _, substr := range tt.errContains {
				assert.True(t, strings.Contains(err.Error(), substr))
			}
		})
	}
}

func TestFMPClient(t *testing.T) {
	logger := zerolog.New(nil)

	// Ensure the fmp client can be created with the default base url.
	fc, err := NewFMPClient(&FMPConfig{APIKey: "key", Logger: &logger})
	assert.NoError(t, err)
	assert.Equal(t, fc.cfg.BaseURL, DefaultFMPBaseURL)
	assert.Equal(t, fc.httpc.Timeout, defaultFetchTimeout)

	// Ensure urls can be formed accurately.
	fc, err = NewFMPClient(&FMPConfig{APIKey: "key", BaseURL: "http://base/", Logger: &logger})
	assert.NoError(t, err)

	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")
	assert.Equal(t, fc.formURL("/path", params.Encode()), "http://base/path?a=bbb&b=ccc")

	_, err = NewFMPClient(&FMPConfig{})
	assert.Error(t, err)
}

func TestFMPFetch(t *testing.T) {
	var query url.Values
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.Query()

		switch {
		case query.Get("apikey") != "key":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"Error Message": "Invalid API KEY."}`))
		case strings.HasSuffix(r.URL.Path, "/NOPE"):
			_, _ = w.Write([]byte(`{}`))
		default:
			_, _ = w.Write([]byte(fmpHistory))
		}
	}))
	defer srv.Close()

	logger := zerolog.New(nil)
	fc, err := NewFMPClient(&FMPConfig{APIKey: "key", BaseURL: srv.URL, Logger: &logger})
	assert.NoError(t, err)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	// Ensure history is requested for the symbol and date range.
	table, err := fc.Fetch(context.Background(), "AAPL", start, end)
	assert.NoError(t, err)
	assert.Equal(t, path, "/historical-price-full/AAPL")
	assert.Equal(t, query.Get("from"), "2025-02-01")
	assert.Equal(t, query.Get("to"), "2025-02-10")
	assert.Equal(t, table.Len(), 2)

	// Ensure the fetched table normalizes into an ascending series.
	series, err := ohlcv.Normalize(table)
	assert.NoError(t, err)
	assert.Equal(t, len(series), 2)
	assert.Equal(t, series[0].Date.Day(), 4)
	assert.Equal(t, series[0].AdjClose, 232.6)
	assert.Equal(t, series[1].Volume, uint64(39620300))

	// Ensure a zero end leaves the range open.
	_, err = fc.Fetch(context.Background(), "AAPL", start, time.Time{})
	assert.NoError(t, err)
	assert.False(t, query.Has("to"))

	// Ensure unknown symbols are reported as not enough data.
	_, err = fc.Fetch(context.Background(), "NOPE", start, end)
	assert.True(t, errors.Is(err, shared.ErrNotEnoughData))

	_, err = fc.Fetch(context.Background(), "", start, end)
	assert.Error(t, err)

	// Ensure api errors are surfaced.
	bad, err := NewFMPClient(&FMPConfig{APIKey: "wrong", BaseURL: srv.URL, Logger: &logger})
	assert.NoError(t, err)
	_, err = bad.Fetch(context.Background(), "AAPL", start, end)
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Invalid API KEY."))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(nil)

	csv := "Date,Open,High,Low,Close,Adj Close,Volume\n" +
		"2024-01-02,10,11,9,10.5,10.4,1000\n" +
		"2024-01-03,10.5,12,10,11.5,11.4,1200\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "MSFT.csv"), []byte(csv), 0o600))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.json"), []byte(fmpHistory), 0o600))

	bare := `[{"date": "2024-01-02", "open": 1, "high": 2, "low": 1, "close": 2, "adj_close": 2, "volume": 10}]`
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "TSLA.json"), []byte(bare), 0o600))

	_, err := NewFileSource(&FileConfig{})
	assert.Error(t, err)

	src, err := NewFileSource(&FileConfig{Dir: dir, Logger: &logger})
	assert.NoError(t, err)
	assert.Equal(t, src.cfg.HeaderRows, 1)

	tests := []struct {
		symbol string
		rows   int
	}{
		{symbol: "MSFT", rows: 2},
		{symbol: "AAPL", rows: 2},
		{symbol: "TSLA", rows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			// Ensure each stored format loads and normalizes.
			table, err := src.Fetch(context.Background(), tt.symbol, time.Time{}, time.Time{})
			assert.NoError(t, err)
			series, err := ohlcv.Normalize(table)
			assert.NoError(t, err)
			assert.Equal(t, len(series), tt.rows)
		})
	}

	// Ensure missing symbols fail.
	_, err = src.Fetch(context.Background(), "AMD", time.Time{}, time.Time{})
	assert.Error(t, err)

	// Ensure a cancelled context stops the fetch.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx, "MSFT", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = LoadTable(filepath.Join(dir, "prices.txt"), 1)
	assert.Error(t, err)
}
