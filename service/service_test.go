package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dnldd/stocksense/feature"
	"github.com/dnldd/stocksense/metrics"
	"github.com/dnldd/stocksense/ohlcv"
	"github.com/dnldd/stocksense/prediction"
	"github.com/dnldd/stocksense/shared"
	"github.com/go-co-op/gocron"
	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC)

// testTable returns a raw daily price table of n days ending on end.
func testTable(end time.Time, n int, withVolume bool) *shared.Table {
	names := []string{"date", "open", "high", "low", "close", "adjClose"}
	if withVolume {
		names = append(names, "volume")
	}

	table := &shared.Table{Columns: make([]shared.Column, len(names))}
	for idx, name := range names {
		table.Columns[idx] = shared.Column{Header: []string{name}, Cells: make([]string, n)}
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for row := 0; row < n; row++ {
		date := end.AddDate(0, 0, row-n+1)
		price := 150 + 5*math.Sin(float64(row)/5) + float64(row)/4
		cells := []string{
			date.Format(shared.DateLayout),
			format(price - 0.5),
			format(price + 1.5),
			format(price - 1.5),
			format(price),
			format(price - 0.2),
		}
		if withVolume {
			cells = append(cells, strconv.Itoa(50_000_000+row*1_000))
		}
		for col := range cells {
			table.Columns[col].Cells[row] = cells[col]
		}
	}

	return table
}

type fakeSource struct {
	table *shared.Table
	err   error
}

func (s *fakeSource) Fetch(ctx context.Context, symbol string, start time.Time, end time.Time) (*shared.Table, error) {
	return s.table, s.err
}

// constantPredictor predicts the same scaled value for every window.
func constantPredictor(v float64) prediction.PredictorFunc {
	return func(ctx context.Context, windows [][][]float64) ([][]float64, error) {
		out := make([][]float64, len(windows))
		for idx := range out {
			out[idx] = []float64{v}
		}
		return out, nil
	}
}

func newTestForecaster(t *testing.T, source shared.DataSource, predictors map[string]shared.Predictor) (*Forecaster, *metrics.Metrics) {
	t.Helper()

	logger := zerolog.New(nil)
	m := metrics.NewMetrics()
	f, err := NewForecaster(&ForecasterConfig{
		Source:     source,
		Predictors: predictors,
		Metrics:    m,
		Now:        func() time.Time { return testNow },
		Logger:     &logger,
	})
	assert.NoError(t, err)

	return f, m
}

func TestForecasterConfig(t *testing.T) {
	logger := zerolog.New(nil)
	base := ForecasterConfig{
		Source:     &fakeSource{},
		Predictors: map[string]shared.Predictor{"apple": &prediction.Persistence{}},
		Metrics:    metrics.NewMetrics(),
		Logger:     &logger,
	}

	tests := []struct {
		name        string
		modify      func(cfg *ForecasterConfig)
		errContains []string
	}{
		{name: "valid config returns nil", modify: func(cfg *ForecasterConfig) {}},
		{
			name:        "missing source",
			modify:      func(cfg *ForecasterConfig) { cfg.Source = nil },
			errContains: []string{"data source cannot be nil"},
		},
		{
			name:        "nil predictor",
			modify:      func(cfg *ForecasterConfig) { cfg.Predictors = map[string]shared.Predictor{"apple": nil} },
			errContains: []string{"predictor for apple cannot be nil"},
		},
		{
			name:   "multiple missing fields",
			modify: func(cfg *ForecasterConfig) { *cfg = ForecasterConfig{HistoryMonths: -1} },
			errContains: []string{
				"data source cannot be nil",
				"no predictors provided",
				"history months cannot be negative",
				"metrics cannot be nil",
				"logger cannot be nil",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			err := cfg.Validate()
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

	// Ensure defaults are applied.
	cfg := base
	f, err := NewForecaster(&cfg)
	assert.NoError(t, err)
	assert.Equal(t, f.cfg.HistoryMonths, defaultHistoryMonths)
	assert.Equal(t, f.cfg.PredictTimeout, defaultPredictTimeout)
	assert.True(t, f.cfg.Now != nil)
}

func TestForecasterRun(t *testing.T) {
	table := testTable(testNow, 90, true)
	source := &fakeSource{table: table}
	f, m := newTestForecaster(t, source, map[string]shared.Predictor{
		"apple":  constantPredictor(0.5),
		"google": &prediction.Persistence{},
	})

	// Rebuild the dataset the run sees to derive the expected prices.
	series, err := ohlcv.Normalize(table)
	assert.NoError(t, err)
	start := f.historyStart(testNow)
	assert.Equal(t, start, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	ds, err := feature.Assemble(series.Since(start), feature.Apple)
	assert.NoError(t, err)

	// Ensure a mid range prediction decodes to the midpoint of adjusted close.
	fc, err := f.Run(context.Background(), feature.Apple)
	assert.NoError(t, err)
	assert.Equal(t, fc.Target, "apple")
	assert.Equal(t, fc.Symbol, "AAPL")
	assert.Equal(t, len(fc.Days), prediction.Horizon)
	assert.Equal(t, fc.Days[0].Label, "Tomorrow")
	assert.Equal(t, fc.GeneratedAt, testNow)
	assert.True(t, fc.ID != "")

	mid := (ds.Scaler.Min[0] + ds.Scaler.Max[0]) / 2
	for _, day := range fc.Days {
		assert.True(t, math.Abs(day.Price-mid) < 1e-9)
	}

	last, ok := ds.LastActual()
	assert.True(t, ok)
	assert.Equal(t, fc.LastActual, last)
	assert.True(t, math.Abs(fc.PercentChange-(mid-last)/last*100) < 1e-9)

	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("apple", metrics.OutcomeSuccess)), 1.0)
	assert.True(t, math.Abs(testutil.ToFloat64(m.NextPrice.WithLabelValues("apple"))-mid) < 1e-9)

	// Ensure the offline predictor forecasts recent actual prices.
	fc, err = f.Run(context.Background(), feature.Google)
	assert.NoError(t, err)
	assert.Equal(t, len(fc.Days), prediction.Horizon)
	for _, day := range fc.Days {
		assert.True(t, day.Price > 100 && day.Price < 200)
	}

	// Ensure every run gets a distinct id.
	again, err := f.Run(context.Background(), feature.Google)
	assert.NoError(t, err)
	assert.True(t, again.ID != fc.ID)
}

func TestForecasterRunErrors(t *testing.T) {
	predictors := map[string]shared.Predictor{"apple": constantPredictor(0.5)}

	// Ensure fetch failures are classified by stage.
	f, m := newTestForecaster(t, &fakeSource{err: errors.New("connection refused")}, predictors)
	_, err := f.Run(context.Background(), feature.Apple)
	assert.Error(t, err)
	var stageErr *StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, stageErr.Stage, StageFetch)
	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("apple", metrics.OutcomeFetchFailed)), 1.0)

	// Ensure a table without volume is a schema error.
	f, m = newTestForecaster(t, &fakeSource{table: testTable(testNow, 90, false)}, predictors)
	_, err = f.Run(context.Background(), feature.Apple)
	var schemaErr *shared.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, schemaErr.Missing, []string{ohlcv.FieldVolume})
	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("apple", metrics.OutcomeSchema)), 1.0)

	// Ensure short history is reported as not enough data.
	f, m = newTestForecaster(t, &fakeSource{table: testTable(testNow, 15, true)}, predictors)
	_, err = f.Run(context.Background(), feature.Apple)
	assert.True(t, errors.Is(err, shared.ErrNotEnoughData))
	var insufficient *shared.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("apple", metrics.OutcomeNotEnough)), 1.0)

	// Ensure predictor failures are wrapped.
	failing := prediction.PredictorFunc(func(ctx context.Context, windows [][][]float64) ([][]float64, error) {
		return nil, errors.New("model unavailable")
	})
	f, m = newTestForecaster(t, &fakeSource{table: testTable(testNow, 90, true)},
		map[string]shared.Predictor{"apple": failing})
	_, err = f.Run(context.Background(), feature.Apple)
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, stageErr.Stage, StagePredict)
	assert.True(t, strings.Contains(err.Error(), "model unavailable"))
	assert.Equal(t, testutil.ToFloat64(m.RunsTotal.WithLabelValues("apple", metrics.OutcomePredictError)), 1.0)

	// Ensure an empty prediction is reported as not enough data.
	empty := prediction.PredictorFunc(func(ctx context.Context, windows [][][]float64) ([][]float64, error) {
		return [][]float64{}, nil
	})
	f, _ = newTestForecaster(t, &fakeSource{table: testTable(testNow, 90, true)},
		map[string]shared.Predictor{"apple": empty})
	_, err = f.Run(context.Background(), feature.Apple)
	var emptyErr *shared.EmptyPredictionError
	assert.True(t, errors.As(err, &emptyErr))
	assert.True(t, errors.Is(err, shared.ErrNotEnoughData))

	// Ensure targets without a predictor fail.
	_, err = f.Run(context.Background(), feature.Google)
	assert.Error(t, err)
}

func TestForecastView(t *testing.T) {
	fc := &Forecast{
		ID:     "id",
		Target: "apple",
		Symbol: "AAPL",
		Days: []prediction.Day{
			{Label: "Tomorrow", Price: 231.456},
			{Label: "2nd Day", Price: 229.994},
		},
		LastActual:    230.001,
		PercentChange: 0.63217,
		Direction:     "up",
		GeneratedAt:   testNow,
	}

	// Ensure prices and percent changes are rounded to two places.
	view := fc.View()
	assert.Equal(t, view.Days[0].Price.String(), "231.46")
	assert.Equal(t, view.Days[1].Price.String(), "229.99")
	assert.Equal(t, view.Next.String(), "231.46")
	assert.Equal(t, view.LastActual.String(), "230")
	assert.Equal(t, view.PercentChange.String(), "0.63")
	assert.Equal(t, view.Direction, "up")

	empty := (&Forecast{}).View()
	assert.True(t, empty.Next.Equal(decimal.Zero))
}

func TestHistory(t *testing.T) {
	// Ensure history size cannot be negative or zero.
	_, err := NewHistory(-1)
	assert.Error(t, err)
	_, err = NewHistory(0)
	assert.Error(t, err)

	size := 4
	h, err := NewHistory(size)
	assert.NoError(t, err)

	// Ensure an empty history returns nothing.
	assert.True(t, h.Last() == nil)
	assert.Equal(t, len(h.LastN(size)), 0)
	assert.True(t, h.LastN(-1) == nil)

	for idx := range size {
		h.Update(&Forecast{ID: fmt.Sprint(idx + 1)})
	}
	assert.Equal(t, h.Len(), size)
	assert.Equal(t, h.Last().ID, "4")

	// Ensure requests beyond the recorded count are clamped.
	assert.Equal(t, len(h.LastN(size+1)), size)

	// Ensure updates at capacity overwrite the oldest entry.
	h.Update(&Forecast{ID: "5"})
	assert.Equal(t, h.Len(), size)
	assert.Equal(t, h.Last().ID, "5")

	ids := []string{}
	for _, fc := range h.LastN(3) {
		ids = append(ids, fc.ID)
	}
	assert.Equal(t, ids, []string{"3", "4", "5"})
}

// fakeRunner records runs and fails targets listed in fail.
type fakeRunner struct {
	mtx  sync.Mutex
	runs map[string]int
	fail map[string]bool
}

func (r *fakeRunner) Run(ctx context.Context, target feature.Target) (*Forecast, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.runs == nil {
		r.runs = make(map[string]int)
	}
	r.runs[target.Name]++

	if r.fail[target.Name] {
		return nil, fmt.Errorf("%s failed", target.Name)
	}

	return &Forecast{
		ID:          fmt.Sprintf("%s-%d", target.Name, r.runs[target.Name]),
		Target:      target.Name,
		Symbol:      target.Symbol,
		Days:        []prediction.Day{{Label: "Tomorrow", Price: 100}},
		GeneratedAt: time.Now(),
	}, nil
}

func (r *fakeRunner) count(name string) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.runs[name]
}

func newTestManager(t *testing.T, runner Runner) *Manager {
	t.Helper()

	logger := zerolog.New(nil)
	mgr, err := NewManager(&ManagerConfig{
		Targets:      feature.Targets(),
		Forecaster:   runner,
		JobScheduler: gocron.NewScheduler(time.UTC),
		Metrics:      metrics.NewMetrics(),
		Logger:       &logger,
	})
	assert.NoError(t, err)

	return mgr
}

func TestManagerConfig(t *testing.T) {
	logger := zerolog.New(nil)
	base := ManagerConfig{
		Targets:      feature.Targets(),
		Forecaster:   &fakeRunner{},
		JobScheduler: gocron.NewScheduler(time.UTC),
		Metrics:      metrics.NewMetrics(),
		Logger:       &logger,
	}

	tests := []struct {
		name        string
		modify      func(cfg *ManagerConfig)
		errContains []string
	}{
		{name: "valid config returns nil", modify: func(cfg *ManagerConfig) {}},
		{
			name:        "invalid refresh time",
			modify:      func(cfg *ManagerConfig) { cfg.RefreshAt = "4pm" },
			errContains: []string{"invalid refresh time '4pm'"},
		},
		{
			name:        "duplicate targets",
			modify:      func(cfg *ManagerConfig) { cfg.Targets = []feature.Target{feature.Apple, feature.Apple} },
			errContains: []string{"duplicate target apple"},
		},
		{
			name: "multiple missing fields",
			modify: func(cfg *ManagerConfig) {
				*cfg = ManagerConfig{HistorySize: -1}
			},
			errContains: []string{
				"no targets provided",
				"forecaster cannot be nil",
				"history size cannot be negative",
				"job scheduler cannot be nil",
				"metrics cannot be nil",
				"logger cannot be nil",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			err := cfg.Validate()
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

	// Ensure defaults are applied.
	cfg := base
	mgr, err := NewManager(&cfg)
	assert.NoError(t, err)
	assert.Equal(t, mgr.cfg.RefreshAt, DefaultRefreshAt)
	assert.Equal(t, len(mgr.Targets()), 2)
}

func TestManagerRefresh(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"google": true}}
	mgr := newTestManager(t, runner)

	// Ensure nothing is recorded before a refresh.
	_, err := mgr.Latest("apple")
	assert.True(t, errors.Is(err, ErrNoForecast))
	_, ok := mgr.LastRefresh()
	assert.False(t, ok)

	// Ensure a refresh runs every target and reports failures.
	failures := mgr.Refresh(context.Background())
	assert.Equal(t, len(failures), 1)
	assert.Error(t, failures["google"])
	assert.Equal(t, runner.count("apple"), 1)
	assert.Equal(t, runner.count("google"), 1)

	_, ok = mgr.LastRefresh()
	assert.True(t, ok)

	latest, err := mgr.Latest("apple")
	assert.NoError(t, err)
	assert.Equal(t, latest.ID, "apple-1")

	_, err = mgr.Latest("google")
	assert.True(t, errors.Is(err, ErrNoForecast))

	// Ensure same day forecasts are served from the history.
	fc, err := mgr.Forecast(context.Background(), "apple")
	assert.NoError(t, err)
	assert.Equal(t, fc.ID, "apple-1")
	assert.Equal(t, runner.count("apple"), 1)

	// Ensure missing forecasts are run on demand.
	_, err = mgr.Forecast(context.Background(), "google")
	assert.Error(t, err)
	assert.Equal(t, runner.count("google"), 2)

	mgr.Refresh(context.Background())
	history, err := mgr.History("apple", 10)
	assert.NoError(t, err)
	assert.Equal(t, len(history), 2)
	assert.Equal(t, history[1].ID, "apple-2")

	// Ensure unknown targets are rejected.
	_, err = mgr.Forecast(context.Background(), "tesla")
	assert.Error(t, err)
	_, err = mgr.Latest("tesla")
	assert.Error(t, err)
	_, err = mgr.History("tesla", 1)
	assert.Error(t, err)
}

func TestManagerRun(t *testing.T) {
	runner := &fakeRunner{}
	mgr := newTestManager(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	// Ensure the initial refresh runs on start.
	deadline := time.Now().Add(time.Second * 5)
	for time.Now().Before(deadline) {
		if _, err := mgr.Latest("google"); err == nil {
			break
		}
		time.Sleep(time.Millisecond * 10)
	}

	_, err := mgr.Latest("google")
	assert.NoError(t, err)

	// Ensure the manager can be gracefully terminated.
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second * 5):
		t.Fatal("manager did not stop")
	}
}
