package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/PriceWatch/internal/metrics"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNoData is returned when no source produced any bars
var ErrNoData = errors.New("no price data available")

// Fetcher returns OHLC history for a ticker
type Fetcher interface {
	Fetch(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error)
}

// Source is a single upstream price provider
type Source interface {
	Name() string
	Candles(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error)
}

// Chain tries each source in order and returns the first non-empty series
type Chain struct {
	sources []Source
	metrics *metrics.Recorder
	logger  zerolog.Logger
}

// NewChain creates a fallback chain. rec may be nil.
func NewChain(rec *metrics.Recorder, sources ...Source) *Chain {
	return &Chain{
		sources: sources,
		metrics: rec,
		logger:  log.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch implements Fetcher
func (c *Chain) Fetch(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error) {
	ctx, span := trace.StartSpan(ctx, "fetcher.Fetch", ticker)
	var lastErr error
	defer func() { trace.End(span, lastErr) }()

	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			lastErr = err
			return nil, err
		}

		start := time.Now()
		series, err := src.Candles(ctx, ticker, spec)
		c.metrics.RecordFetchLatency(src.Name(), time.Since(start).Seconds())

		if err == nil && len(series) == 0 {
			err = errors.New("empty series")
		}
		if err != nil {
			c.metrics.RecordFetchError(src.Name())
			c.logger.Warn().
				Err(err).
				Str("source", src.Name()).
				Str("ticker", ticker).
				Stringer("window", spec).
				Msg("Source failed, falling back")
			lastErr = err
			continue
		}

		c.logger.Debug().
			Str("source", src.Name()).
			Str("ticker", ticker).
			Int("bars", len(series)).
			Msg("Fetched series")
		lastErr = nil
		return series, nil
	}

	if lastErr == nil {
		lastErr = ErrNoData
		return nil, ErrNoData
	}
	lastErr = fmt.Errorf("%w for %s (%s): last error: %v", ErrNoData, ticker, spec, lastErr)
	return nil, lastErr
}
