package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dnldd/stocksense/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// defaultPredictTimeout bounds a single model server request.
	defaultPredictTimeout = time.Second * 10
)

// HTTPConfig represents the configuration for a model server predictor.
type HTTPConfig struct {
	// URL is the model server base url.
	URL string
	// Model is the served model name.
	Model string
	// Timeout bounds each predict request.
	Timeout time.Duration
	// Logger is the predictor logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *HTTPConfig) Validate() error {
	var errs error

	if cfg.URL == "" {
		errs = errors.Join(errs, fmt.Errorf("model server url cannot be an empty string"))
	}
	if cfg.Model == "" {
		errs = errors.Join(errs, fmt.Errorf("model name cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("predictor logger cannot be nil"))
	}

	return errs
}

// HTTPPredictor queries a model server exposing the tensorflow serving REST
// predict api.
type HTTPPredictor struct {
	cfg   *HTTPConfig
	httpc http.Client
}

// Ensure HTTPPredictor implements the Predictor interface.
var _ shared.Predictor = (*HTTPPredictor)(nil)

// NewHTTPPredictor initializes a new model server predictor.
func NewHTTPPredictor(cfg *HTTPConfig) (*HTTPPredictor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating predictor config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPredictTimeout
	}

	return &HTTPPredictor{
		cfg:   cfg,
		httpc: http.Client{Timeout: timeout},
	}, nil
}

// endpoint returns the predict url of the configured model.
func (p *HTTPPredictor) endpoint() string {
	return strings.TrimSuffix(p.cfg.URL, "/") + "/v1/models/" + p.cfg.Model + ":predict"
}

// predictRequest is the model server request body.
type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

// Predict sends the windows to the model server and returns its predictions.
func (p *HTTPPredictor) Predict(ctx context.Context, windows [][][]float64) ([][]float64, error) {
	if len(windows) == 0 {
		return [][]float64{}, nil
	}

	body, err := json.Marshal(predictRequest{Instances: windows})
	if err != nil {
		return nil, fmt.Errorf("encoding predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s predictions: %w", p.cfg.Model, err)
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading predict response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, msg)
	}

	out, err := parsePredictions(data)
	if err != nil {
		return nil, err
	}

	p.cfg.Logger.Debug().Str("model", p.cfg.Model).Int("windows", len(windows)).
		Int("predictions", len(out)).Msg("received predictions")

	return out, nil
}

// parsePredictions extracts the predictions array of a model server response.
// Rows may be nested arrays or bare scalars.
func parsePredictions(data []byte) ([][]float64, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid predict response json")
	}

	preds := gjson.GetBytes(data, "predictions")
	if !preds.IsArray() {
		return nil, fmt.Errorf("predict response has no predictions array")
	}

	rows := preds.Array()
	out := make([][]float64, len(rows))
	for idx, row := range rows {
		switch {
		case row.IsArray():
			cells := row.Array()
			out[idx] = make([]float64, len(cells))
			for col, cell := range cells {
				if cell.Type != gjson.Number {
					return nil, fmt.Errorf("prediction %d has non-numeric value '%s'", idx, cell.Raw)
				}
				out[idx][col] = cell.Float()
			}
		case row.Type == gjson.Number:
			out[idx] = []float64{row.Float()}
		default:
			return nil, fmt.Errorf("prediction %d has non-numeric value '%s'", idx, row.Raw)
		}
	}

	return out, nil
}
