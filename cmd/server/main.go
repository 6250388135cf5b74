package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/PriceWatch/internal/app"
	"github.com/Alias1177/PriceWatch/internal/config"
	"github.com/Alias1177/PriceWatch/internal/monitor"
	"github.com/Alias1177/PriceWatch/internal/server"
	"github.com/Alias1177/PriceWatch/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("version", version).Str("environment", cfg.Environment).Msg("Starting PriceWatch server")

	// 3. Tracing
	if err := trace.Init(trace.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
	}); err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	// 4. Wire components
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer a.Close()

	// 5. Scheduled watchlist
	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		mon = monitor.New(a.Orchestrator, monitor.Options{
			Schedule:    cfg.Monitor.Schedule,
			Watchlist:   cfg.Monitor.Watchlist,
			Thresholds:  cfg.Thresholds,
			Concurrency: cfg.Monitor.Concurrency,
		})
		if err := mon.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Monitor not started")
			mon = nil
		}
	}

	// 6. HTTP API
	var records server.RecordReader
	if a.DB != nil {
		records = a.DB
	}
	srv := server.New(a.Orchestrator, records, a.Metrics, server.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	if mon != nil {
		mon.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Trace flush failed")
	}
	log.Info().Msg("Server exited")
}

// setupLogging configures the global logger
func setupLogging(logLevel, format string) {
	if format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log.Logger = log.Output(output)
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}
