package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/stocksense/feature"
	"github.com/dnldd/stocksense/metrics"
	"github.com/dnldd/stocksense/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// DefaultRefreshAt is the default daily refresh time (in new york time).
	DefaultRefreshAt = "16:30"
	// defaultHistorySize is the default number of forecasts kept per target.
	defaultHistorySize = 30
)

var (
	// ErrNoForecast is returned when a target has no recorded forecast.
	ErrNoForecast = errors.New("no forecast available")
	// ErrUnknownTarget is returned for targets the manager does not track.
	ErrUnknownTarget = errors.New("unknown target")
)

// Runner defines the requirements for running a target forecast.
type Runner interface {
	// Run produces a forecast for the provided target.
	Run(ctx context.Context, target feature.Target) (*Forecast, error)
}

// ManagerConfig represents the forecast manager configuration.
type ManagerConfig struct {
	// Targets represents the forecast targets.
	Targets []feature.Target
	// Forecaster runs target forecasts.
	Forecaster Runner
	// RefreshAt is the daily refresh time in HH:MM (new york time).
	RefreshAt string
	// HistorySize is the number of forecasts kept per target.
	HistorySize int
	// JobScheduler represents the job scheduler.
	JobScheduler *gocron.Scheduler
	// Metrics records refreshes.
	Metrics *metrics.Metrics
	// Logger represents the manager logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Targets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no targets provided"))
	}
	seen := make(map[string]bool, len(cfg.Targets))
	for idx := range cfg.Targets {
		if seen[cfg.Targets[idx].Name] {
			errs = errors.Join(errs, fmt.Errorf("duplicate target %s", cfg.Targets[idx].Name))
		}
		seen[cfg.Targets[idx].Name] = true
	}
	if cfg.Forecaster == nil {
		errs = errors.Join(errs, fmt.Errorf("forecaster cannot be nil"))
	}
	if cfg.RefreshAt != "" {
		if _, err := time.Parse(shared.SessionTimeLayout, cfg.RefreshAt); err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid refresh time '%s': %w", cfg.RefreshAt, err))
		}
	}
	if cfg.HistorySize < 0 {
		errs = errors.Join(errs, fmt.Errorf("history size cannot be negative"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}
	if cfg.Metrics == nil {
		errs = errors.Join(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager keeps the latest forecasts of every target and refreshes them on a
// daily schedule.
type Manager struct {
	cfg             *ManagerConfig
	targets         map[string]feature.Target
	histories       map[string]*History
	refreshRequests chan struct{}
	refreshing      atomic.Bool
	lastRefresh     atomic.Int64
}

// NewManager initializes a new forecast manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating manager config: %w", err)
	}

	if cfg.RefreshAt == "" {
		cfg.RefreshAt = DefaultRefreshAt
	}

	size := cfg.HistorySize
	if size == 0 {
		size = defaultHistorySize
	}

	mgr := &Manager{
		cfg:             cfg,
		targets:         make(map[string]feature.Target, len(cfg.Targets)),
		histories:       make(map[string]*History, len(cfg.Targets)),
		refreshRequests: make(chan struct{}, 1),
	}

	for _, target := range cfg.Targets {
		history, err := NewHistory(size)
		if err != nil {
			return nil, fmt.Errorf("creating %s history: %w", target.Name, err)
		}

		mgr.targets[target.Name] = target
		mgr.histories[target.Name] = history
	}

	return mgr, nil
}

// Targets returns the managed targets in configured order.
func (m *Manager) Targets() []feature.Target {
	out := make([]feature.Target, len(m.cfg.Targets))
	copy(out, m.cfg.Targets)
	return out
}

// target returns the managed target with the provided name.
func (m *Manager) target(name string) (feature.Target, error) {
	target, ok := m.targets[name]
	if !ok {
		return feature.Target{}, fmt.Errorf("'%s': %w", name, ErrUnknownTarget)
	}

	return target, nil
}

// SendRefreshRequest queues a refresh of every target. Requests made while one
// is pending are dropped.
func (m *Manager) SendRefreshRequest() {
	select {
	case m.refreshRequests <- struct{}{}:
		// do nothing.
	default:
		m.cfg.Logger.Debug().Msg("refresh already pending")
	}
}

// Refresh forecasts every target concurrently and records the results. It
// returns the failures keyed by target. Overlapping refreshes are skipped.
func (m *Manager) Refresh(ctx context.Context) map[string]error {
	if !m.refreshing.CompareAndSwap(false, true) {
		m.cfg.Logger.Info().Msg("refresh already in progress")
		return nil
	}
	defer m.refreshing.Store(false)

	var wg sync.WaitGroup
	var mtx sync.Mutex
	failures := make(map[string]error)

	for _, target := range m.cfg.Targets {
		wg.Add(1)
		go func(target feature.Target) {
			defer wg.Done()

			if _, err := m.forecast(ctx, target); err != nil {
				mtx.Lock()
				failures[target.Name] = err
				mtx.Unlock()
			}
		}(target)
	}

	wg.Wait()

	m.lastRefresh.Store(time.Now().Unix())
	m.cfg.Metrics.LastRefresh.SetToCurrentTime()
	m.cfg.Logger.Info().Int("targets", len(m.cfg.Targets)).Int("failed", len(failures)).Msg("refresh complete")

	return failures
}

// forecast runs and records a forecast for the provided target.
func (m *Manager) forecast(ctx context.Context, target feature.Target) (*Forecast, error) {
	fc, err := m.cfg.Forecaster.Run(ctx, target)
	if err != nil {
		m.cfg.Logger.Error().Err(err).Str("target", target.Name).Msg("forecasting failed")
		return nil, err
	}

	m.histories[target.Name].Update(fc)
	return fc, nil
}

// Forecast returns the latest forecast of the named target, running one when
// none was generated on the current day.
func (m *Manager) Forecast(ctx context.Context, name string) (*Forecast, error) {
	target, err := m.target(name)
	if err != nil {
		return nil, err
	}

	last := m.histories[name].Last()
	if last != nil && sameDay(last.GeneratedAt, time.Now().In(last.GeneratedAt.Location())) {
		return last, nil
	}

	return m.forecast(ctx, target)
}

// sameDay reports whether both times fall on the same calendar date.
func sameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Latest returns the most recent recorded forecast of the named target.
func (m *Manager) Latest(name string) (*Forecast, error) {
	if _, err := m.target(name); err != nil {
		return nil, err
	}

	last := m.histories[name].Last()
	if last == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoForecast)
	}

	return last, nil
}

// History returns up to n recorded forecasts of the named target, oldest first.
func (m *Manager) History(name string, n int) ([]*Forecast, error) {
	if _, err := m.target(name); err != nil {
		return nil, err
	}

	return m.histories[name].LastN(n), nil
}

// LastRefresh returns the completion time of the last refresh.
func (m *Manager) LastRefresh() (time.Time, bool) {
	unix := m.lastRefresh.Load()
	if unix == 0 {
		return time.Time{}, false
	}

	return time.Unix(unix, 0), true
}

// Run schedules the daily refresh and manages the lifecycle processes of the
// forecast manager. An initial refresh is requested on start.
func (m *Manager) Run(ctx context.Context) {
	_, err := m.cfg.JobScheduler.Every(1).Day().At(m.cfg.RefreshAt).Do(m.SendRefreshRequest)
	if err != nil {
		m.cfg.Logger.Error().Msgf("scheduling daily refresh: %v", err)
		return
	}

	m.cfg.JobScheduler.StartAsync()
	defer m.cfg.JobScheduler.Stop()

	m.SendRefreshRequest()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.refreshRequests:
			m.Refresh(ctx)
		}
	}
}
