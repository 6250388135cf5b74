package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Alias1177/PriceWatch/internal/database"
	"github.com/Alias1177/PriceWatch/internal/metrics"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/orchestrator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine is the orchestrator surface the handlers use
type Engine interface {
	Defaults() model.ThresholdConfig
	Run(ctx context.Context, ticker string, cfg model.ThresholdConfig, narrate bool) orchestrator.Evaluation
	Trend(ctx context.Context, ticker string) model.TrendStats
	Decide(ctx context.Context, ticker string, cfg model.ThresholdConfig, withNews bool) orchestrator.Decision
}

// RecordReader reads persisted results
type RecordReader interface {
	RecentResults(ctx context.Context, ticker string, limit int) ([]database.PriceLog, error)
}

// Options configures the HTTP server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps Echo HTTP server
type Server struct {
	echo    *echo.Echo
	engine  Engine
	records RecordReader
	metrics *metrics.Recorder
	opts    Options
	logger  zerolog.Logger
}

// New creates the HTTP API. records may be nil when persistence is disabled.
func New(engine Engine, records RecordReader, rec *metrics.Recorder, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		engine:  engine,
		records: records,
		metrics: rec,
		opts:    opts,
		logger:  log.With().Str("component", "http_server").Logger(),
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(s.requestLogging())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/price", s.handlePrice)
	s.echo.GET("/history", s.handleHistory)
	s.echo.GET("/decision", s.handleDecision)
	s.echo.GET("/records", s.handleRecords)

	// Expose Prometheus metrics endpoint for scraping
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
}

// requestLogging logs each request and records it with the route template
func (s *Server) requestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.metrics.RecordHTTP(route, req.Method, res.Status, latency.Seconds())

			event := s.logger.Info()
			if res.Status >= http.StatusInternalServerError {
				event = s.logger.Error()
			}
			event.
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Int("status", res.Status).
				Dur("latency", latency).
				Msg("HTTP request")

			return nil
		}
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info().Str("addr", s.opts.Addr).Msg("HTTP server listening")
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped gracefully")
	return nil
}
