// Package api serves forecasts and dashboard charts over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dnldd/stocksense/feature"
	"github.com/dnldd/stocksense/indicator"
	"github.com/dnldd/stocksense/metrics"
	"github.com/dnldd/stocksense/service"
	"github.com/dnldd/stocksense/shared"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// shutdownTimeout bounds graceful server shutdown.
	shutdownTimeout = time.Second * 5
	// readHeaderTimeout bounds reading request headers.
	readHeaderTimeout = time.Second * 10
)

// Forecasts defines the requirements for serving target forecasts.
type Forecasts interface {
	// Forecast returns the current forecast of the named target.
	Forecast(ctx context.Context, name string) (*service.Forecast, error)
	// History returns up to n recorded forecasts of the named target.
	History(name string, n int) ([]*service.Forecast, error)
	// Targets returns the forecast targets.
	Targets() []feature.Target
}

// Ensure the forecast manager can serve the api.
var _ Forecasts = (*service.Manager)(nil)

// ServerConfig represents the api server configuration.
type ServerConfig struct {
	// Address is the listen address.
	Address string
	// Forecasts serves target forecasts.
	Forecasts Forecasts
	// Source provides daily price history for dashboard charts.
	Source shared.DataSource
	// Tickers are the symbols charts may be requested for.
	Tickers []string
	// Lower is the bollinger lower band policy of dashboard charts.
	Lower indicator.LowerBandPolicy
	// Metrics records api requests and is exposed for scraping.
	Metrics *metrics.Metrics
	// Logger represents the api logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ServerConfig) Validate() error {
	var errs error

	if cfg.Address == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.Forecasts == nil {
		errs = errors.Join(errs, fmt.Errorf("forecasts cannot be nil"))
	}
	if cfg.Source == nil {
		errs = errors.Join(errs, fmt.Errorf("data source cannot be nil"))
	}
	if len(cfg.Tickers) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no tickers provided"))
	}
	if cfg.Metrics == nil {
		errs = errors.Join(errs, fmt.Errorf("metrics cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Server represents the api server.
type Server struct {
	cfg     *ServerConfig
	engine  *gin.Engine
	tickers map[string]bool
}

// NewServer initializes a new api server.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating server config: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		engine:  gin.New(),
		tickers: make(map[string]bool, len(cfg.Tickers)),
	}

	for _, ticker := range cfg.Tickers {
		s.tickers[ticker] = true
	}

	s.engine.Use(gin.Recovery(), s.observe())
	s.routes()

	return s, nil
}

// routes registers the api routes.
func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(s.cfg.Metrics.Handler()))

	api := s.engine.Group("/api")
	api.GET("/targets", s.getTargets)
	api.GET("/forecasts/:target", s.getForecast)
	api.GET("/forecasts/:target/history", s.getHistory)
	api.GET("/stocks", s.getStocks)
	api.GET("/stocks/:symbol/charts/:view", s.getChart)
}

// observe logs and counts every request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		s.cfg.Metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.cfg.Logger.Debug().Str("method", c.Request.Method).Str("route", route).
			Int("status", status).Dur("took", time.Since(start)).Msg("handled request")
	}
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the api until the provided context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errs := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info().Msgf("serving api on %s", s.cfg.Address)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving api: %w", err)
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutting down api: %w", err)
		}
		return nil
	}
}
