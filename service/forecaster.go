package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/stocksense/feature"
	"github.com/dnldd/stocksense/metrics"
	"github.com/dnldd/stocksense/ohlcv"
	"github.com/dnldd/stocksense/prediction"
	"github.com/dnldd/stocksense/shared"
	"github.com/dnldd/stocksense/window"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// defaultHistoryMonths is how far back history is fetched for a run.
	defaultHistoryMonths = 2
	// defaultPredictTimeout bounds a predictor call.
	defaultPredictTimeout = time.Second * 30
)

// Run stages.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageAssemble  = "assemble"
	StageWindow    = "window"
	StagePredict   = "predict"
	StageDecode    = "decode"
	StageInsight   = "insight"
)

// StageError represents a forecasting run failure at a pipeline stage.
type StageError struct {
	Target string
	Stage  string
	Err    error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Target, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// outcome classifies a run error into a metrics outcome label.
func outcome(err error) string {
	var schemaErr *shared.SchemaError
	var stageErr *StageError

	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &schemaErr):
		return metrics.OutcomeSchema
	case errors.Is(err, shared.ErrNotEnoughData):
		return metrics.OutcomeNotEnough
	case errors.As(err, &stageErr) && stageErr.Stage == StageFetch:
		return metrics.OutcomeFetchFailed
	case errors.As(err, &stageErr) && stageErr.Stage == StagePredict:
		return metrics.OutcomePredictError
	default:
		return metrics.OutcomeFailed
	}
}

// ForecasterConfig represents the forecaster configuration.
type ForecasterConfig struct {
	// Source provides daily price history.
	Source shared.DataSource
	// Predictors maps target names to their trained models.
	Predictors map[string]shared.Predictor
	// HistoryMonths is how many months of history a run fetches.
	HistoryMonths int
	// PredictTimeout bounds each predictor call.
	PredictTimeout time.Duration
	// Metrics records run outcomes.
	Metrics *metrics.Metrics
	// Now returns the current time. Defaults to new york time.
	Now func() time.Time
	// Logger represents the forecaster logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ForecasterConfig) Validate() error {
	var errs error

	if cfg.Source == nil {
		errs = errors.Join(errs, fmt.Errorf("data source cannot be nil"))
	}
	if len(cfg.Predictors) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no predictors provided"))
	}
	for name, p := range cfg.Predictors {
		if p == nil {
			errs = errors.Join(errs, fmt.Errorf("predictor for %s cannot be nil", name))
		}
	}
	if cfg.HistoryMonths < 0 {
		errs = errors.Join(errs, fmt.Errorf("history months cannot be negative"))
	}
	if cfg.Metrics == nil {
		errs = errors.Join(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Forecaster runs the forecasting pipeline for a target.
type Forecaster struct {
	cfg *ForecasterConfig
}

// NewForecaster initializes a new forecaster.
func NewForecaster(cfg *ForecasterConfig) (*Forecaster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating forecaster config: %w", err)
	}

	if cfg.HistoryMonths == 0 {
		cfg.HistoryMonths = defaultHistoryMonths
	}
	if cfg.PredictTimeout <= 0 {
		cfg.PredictTimeout = defaultPredictTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			now, _, err := shared.NewYorkTime()
			if err != nil {
				return time.Now()
			}
			return now
		}
	}

	return &Forecaster{cfg: cfg}, nil
}

// Run fetches recent history for the target, assembles and windows its
// features, queries the target's predictor and decodes the forecast.
func (f *Forecaster) Run(ctx context.Context, target feature.Target) (*Forecast, error) {
	started := time.Now()
	fc, err := f.run(ctx, target)

	f.cfg.Metrics.RunDuration.WithLabelValues(target.Name).Observe(time.Since(started).Seconds())
	f.cfg.Metrics.RunsTotal.WithLabelValues(target.Name, outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	f.cfg.Metrics.NextPrice.WithLabelValues(target.Name).Set(fc.Days[0].Price)
	f.cfg.Metrics.PercentChange.WithLabelValues(target.Name).Set(fc.PercentChange)

	return fc, nil
}

// historyStart returns the first date of history fetched for a run at now.
func (f *Forecaster) historyStart(now time.Time) time.Time {
	start := now.AddDate(0, -f.cfg.HistoryMonths, 0)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// headers returns the header levels of the provided table.
func headers(t *shared.Table) [][]string {
	out := make([][]string, len(t.Columns))
	for idx := range t.Columns {
		out[idx] = t.Columns[idx].Header
	}

	return out
}

func (f *Forecaster) run(ctx context.Context, target feature.Target) (*Forecast, error) {
	predictor, ok := f.cfg.Predictors[target.Name]
	if !ok {
		return nil, fmt.Errorf("no predictor configured for %s", target.Name)
	}

	stageErr := func(stage string, err error) error {
		return &StageError{Target: target.Name, Stage: stage, Err: err}
	}

	now := f.cfg.Now()
	start := f.historyStart(now)

	table, err := f.cfg.Source.Fetch(ctx, target.Symbol, start, now)
	if err != nil {
		return nil, stageErr(StageFetch, err)
	}

	series, err := ohlcv.Normalize(table)
	if err != nil {
		if table != nil {
			f.cfg.Logger.Error().Msgf("unexpected %s price table headers: %s", target.Symbol,
				spew.Sdump(headers(table)))
		}
		return nil, stageErr(StageNormalize, err)
	}
	series = series.Since(start)

	ds, err := feature.Assemble(series, target)
	if err != nil {
		return nil, stageErr(StageAssemble, err)
	}

	windows, err := window.Build(ds.Scaled.Rows, target.LookBack)
	if err != nil {
		return nil, stageErr(StageWindow, err)
	}

	pctx, cancel := context.WithTimeout(ctx, f.cfg.PredictTimeout)
	defer cancel()

	predictStart := time.Now()
	raw, err := predictor.Predict(pctx, window.Tensor(windows))
	f.cfg.Metrics.PredictDuration.WithLabelValues(target.Name).Observe(time.Since(predictStart).Seconds())
	if err != nil {
		return nil, stageErr(StagePredict, err)
	}

	days, err := prediction.Decode(raw, ds.Scaler)
	if err != nil {
		return nil, stageErr(StageDecode, err)
	}

	last, _ := ds.LastActual()
	insight, err := prediction.NewInsight(last, days)
	if err != nil {
		return nil, stageErr(StageInsight, err)
	}

	fc := &Forecast{
		ID:            uuid.New().String(),
		Target:        target.Name,
		Symbol:        target.Symbol,
		Days:          days,
		LastActual:    insight.LastActual,
		PercentChange: insight.PercentChange,
		Direction:     insight.Direction(),
		GeneratedAt:   now,
	}

	f.cfg.Logger.Info().Str("target", target.Name).Str("id", fc.ID).Int("rows", ds.Raw.Len()).
		Int("windows", len(windows)).Float64("next", days[0].Price).
		Float64("change", fc.PercentChange).Msg("forecast generated")

	return fc, nil
}
