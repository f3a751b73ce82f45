package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/dnldd/stocksense/api"
	"github.com/dnldd/stocksense/chart"
	"github.com/dnldd/stocksense/fetch"
	"github.com/dnldd/stocksense/indicator"
	"github.com/dnldd/stocksense/metrics"
	"github.com/dnldd/stocksense/prediction"
	"github.com/dnldd/stocksense/service"
	"github.com/dnldd/stocksense/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// App wires and runs the forecast service components.
type App struct {
	manager *service.Manager
	server  *api.Server
	logger  *zerolog.Logger
}

// newSource creates the price history source. A data directory takes
// precedence over the FMP api.
func newSource(cfg *Config, logger *zerolog.Logger) (shared.DataSource, error) {
	fetchLogger := logger.With().Str("component", "fetch").Logger()

	if cfg.DataDir != "" {
		source, err := fetch.NewFileSource(&fetch.FileConfig{
			Dir:        cfg.DataDir,
			HeaderRows: cfg.CSVHeaderRows,
			Logger:     &fetchLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating file source: %w", err)
		}
		return source, nil
	}

	source, err := fetch.NewFMPClient(&fetch.FMPConfig{
		APIKey:  cfg.FMPAPIKey,
		BaseURL: cfg.FMPBaseURL,
		Logger:  &fetchLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fmp client: %w", err)
	}

	return source, nil
}

// newPredictors creates a predictor per target. Without a model server every
// target uses the persistence predictor.
func newPredictors(cfg *Config, names []string, logger *zerolog.Logger) (map[string]shared.Predictor, error) {
	predictorLogger := logger.With().Str("component", "predictor").Logger()
	predictors := make(map[string]shared.Predictor, len(names))

	for _, name := range names {
		if cfg.ModelURL == "" {
			predictors[name] = &prediction.Persistence{}
			continue
		}

		p, err := prediction.NewHTTPPredictor(&prediction.HTTPConfig{
			URL:     cfg.ModelURL,
			Model:   name,
			Timeout: cfg.PredictTimeout,
			Logger:  &predictorLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating %s predictor: %w", name, err)
		}
		predictors[name] = p
	}

	if cfg.ModelURL == "" {
		predictorLogger.Warn().Msg("no model server configured, using persistence forecasts")
	}

	return predictors, nil
}

// NewApp initializes the service components from the provided config.
func NewApp(cfg *Config, logger *zerolog.Logger) (*App, error) {
	targets, err := cfg.targets()
	if err != nil {
		return nil, err
	}

	source, err := newSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.Name)
	}

	predictors, err := newPredictors(cfg, names, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics()

	forecasterLogger := logger.With().Str("component", "forecaster").Logger()
	forecaster, err := service.NewForecaster(&service.ForecasterConfig{
		Source:         source,
		Predictors:     predictors,
		HistoryMonths:  cfg.HistoryMonths,
		PredictTimeout: cfg.PredictTimeout,
		Metrics:        m,
		Logger:         &forecasterLogger,
	})
	if err != nil {
		return nil, err
	}

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, err
	}

	schedulerLogger := logger.With().Str("component", "scheduler").Logger()
	manager, err := service.NewManager(&service.ManagerConfig{
		Targets:      targets,
		Forecaster:   forecaster,
		RefreshAt:    cfg.RefreshAt,
		JobScheduler: gocron.NewScheduler(loc),
		Metrics:      m,
		Logger:       &schedulerLogger,
	})
	if err != nil {
		return nil, err
	}

	lower := indicator.SymmetricLower
	if cfg.LegacyLower {
		lower = indicator.LegacyLower
	}

	apiLogger := logger.With().Str("component", "api").Logger()
	server, err := api.NewServer(&api.ServerConfig{
		Address:   cfg.Address,
		Forecasts: manager,
		Source:    source,
		Tickers:   chart.Tickers,
		Lower:     lower,
		Metrics:   m,
		Logger:    &apiLogger,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		manager: manager,
		server:  server,
		logger:  logger,
	}, nil
}

// Run starts the forecast manager and the api server. It blocks until the
// context is cancelled or the server fails.
func (a *App) Run(ctx context.Context, cancel context.CancelFunc) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.manager.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.server.Run(ctx); err != nil {
			a.logger.Error().Err(err).Msg("api server stopped")
			cancel()
		}
	}()

	a.logger.Info().Msg("stocksense running")
	wg.Wait()
	a.logger.Info().Msg("stocksense stopped")
}
