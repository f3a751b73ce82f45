package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "stocksense").Logger()

	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		logger.Error().Err(err).Msg("loading config")
		return
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger = logger.Level(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(&cfg, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("creating stocksense service")
		return
	}

	go handleTermination(ctx, cancel)
	app.Run(ctx, cancel)
}
