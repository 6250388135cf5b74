package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alias1177/PriceWatch/internal/cache"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Cached memoizes successful fetches in a BytesCache. Cache failures are
// logged and fall through to the wrapped fetcher.
type Cached struct {
	next   Fetcher
	cache  cache.BytesCache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCached wraps next. A nil cache disables caching.
func NewCached(next Fetcher, c cache.BytesCache, ttl time.Duration) Fetcher {
	if c == nil {
		return next
	}
	return &Cached{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: log.With().Str("component", "fetcher_cache").Logger(),
	}
}

func cacheKey(ticker string, spec model.WindowSpec) string {
	return fmt.Sprintf("series:%s:%s:%s", ticker, spec.Period, spec.Interval)
}

// Fetch implements Fetcher
func (c *Cached) Fetch(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error) {
	key := cacheKey(ticker, spec)

	b, ok, err := c.cache.GetBytes(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}
	if ok {
		var series model.Series
		if err := json.Unmarshal(b, &series); err == nil && len(series) > 0 {
			c.logger.Debug().Str("key", key).Int("bars", len(series)).Msg("Cache hit")
			return series, nil
		}
		c.logger.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	}

	series, err := c.next.Fetch(ctx, ticker, spec)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(series); err == nil {
		if err := c.cache.SetBytes(ctx, key, b, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return series, nil
}
