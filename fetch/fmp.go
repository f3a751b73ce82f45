package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnldd/stocksense/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// DefaultFMPBaseURL is the FMP v3 api base url.
	DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"
	// historicalPricePath is the daily price history endpoint.
	historicalPricePath = "/historical-price-full/"
	// historicalKey is the response key holding the daily rows.
	historicalKey = "historical"
	// defaultFetchTimeout bounds a single history request.
	defaultFetchTimeout = time.Second * 10
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIkey is the FMP API Key.
	APIKey string
	// BaseURL overrides the FMP api base url.
	BaseURL string
	// Timeout bounds each request.
	Timeout time.Duration
	// Logger represents the fetch logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *FMPConfig) Validate() error {
	var errs error

	if cfg.APIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("fmp logger cannot be nil"))
	}

	return errs
}

// FMPClient represents the Financial Modeling Prep (FMP) API client.
type FMPClient struct {
	cfg   *FMPConfig
	httpc http.Client
}

// Ensure the FMPClient implements the DataSource interface.
var _ shared.DataSource = (*FMPClient)(nil)

// NewFMPClient instantiates a new FMP client.
func NewFMPClient(cfg *FMPConfig) (*FMPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating fmp config: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFMPBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &FMPClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: timeout},
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(c.cfg.BaseURL, "/"))
	b.WriteString(path)
	b.WriteString("?")
	b.WriteString(params)

	return b.String()
}

// Fetch fetches the daily price history of the provided symbol. A zero end
// fetches up to the latest session.
func (c *FMPClient) Fetch(ctx context.Context, symbol string, start time.Time, end time.Time) (*shared.Table, error) {
	if symbol == "" {
		return nil, fmt.Errorf("no symbol provided")
	}

	params := url.Values{}
	params.Add("apikey", c.cfg.APIKey)
	if !start.IsZero() {
		params.Add("from", start.Format(shared.DateLayout))
	}
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DateLayout))
	}

	formedURL := c.formURL(historicalPricePath+url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating history request for %s: %w", symbol, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching daily history for %s: %w", symbol, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if msg := gjson.GetBytes(body, "Error Message").String(); msg != "" {
		return nil, fmt.Errorf("fmp rejected %s history request: %s", symbol, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fmp returned status %d for %s", resp.StatusCode, symbol)
	}

	if !gjson.GetBytes(body, historicalKey).Exists() {
		return nil, fmt.Errorf("no daily history for %s: %w", symbol, shared.ErrNotEnoughData)
	}

	table, err := shared.ParseJSONTable(body, historicalKey)
	if err != nil {
		return nil, fmt.Errorf("parsing %s history: %w", symbol, err)
	}

	c.cfg.Logger.Debug().Str("symbol", symbol).Int("rows", table.Len()).Msg("fetched daily history")

	return table, nil
}
