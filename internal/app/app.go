// Package app wires the configured collaborators into an orchestrator.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/Alias1177/PriceWatch/internal/api/finnhub"
	"github.com/Alias1177/PriceWatch/internal/api/twelvedata"
	"github.com/Alias1177/PriceWatch/internal/api/yahoo"
	"github.com/Alias1177/PriceWatch/internal/cache"
	"github.com/Alias1177/PriceWatch/internal/config"
	"github.com/Alias1177/PriceWatch/internal/database"
	"github.com/Alias1177/PriceWatch/internal/fetcher"
	"github.com/Alias1177/PriceWatch/internal/metrics"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/narration"
	"github.com/Alias1177/PriceWatch/internal/news"
	"github.com/Alias1177/PriceWatch/internal/notify"
	"github.com/Alias1177/PriceWatch/internal/orchestrator"
	"github.com/rs/zerolog/log"
)

// App holds the wired components and the resources to release on Close
type App struct {
	Orchestrator *orchestrator.Orchestrator
	DB           *database.DB // nil when persistence is disabled
	Metrics      *metrics.Recorder

	closers []io.Closer
}

// Build constructs every component enabled in cfg. Optional components
// that fail to initialise are logged and left out; only a broken source
// list or an unreachable database that was explicitly enabled is fatal.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Metrics: metrics.New()}

	sources, err := Sources(cfg.Sources)
	if err != nil {
		return nil, err
	}
	chain := fetcher.NewChain(a.Metrics, sources...)

	// Only daily history is cached; intraday bars must be fresh each cycle
	historyCache, err := cache.New(ctx, cache.Options{
		Backend:       cfg.Cache.Backend,
		RedisAddr:     cfg.Cache.Redis.Addr,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("History cache unavailable, continuing without it")
		historyCache = nil
	}
	if c, ok := historyCache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	opts := orchestrator.Options{
		Intraday:       chain,
		History:        fetcher.NewCached(chain, historyCache, cfg.Cache.TTL),
		IntradayWindow: cfg.Intraday.Spec(model.IntradayWindow()),
		HistoryWindow:  cfg.History.Spec(model.HistoryWindow()),
		Defaults:       cfg.Thresholds,
		Narrator: narration.NewService(
			narration.NewCompleter(cfg.LLM),
			cfg.LLM.CommentMaxTokens,
			cfg.LLM.DecisionMaxTokens,
		),
		Metrics: a.Metrics,
	}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.ConnectionParams{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, db)
		opts.Store = db
		log.Info().Msg("Persistence enabled")
	}

	if cfg.Telegram.Enabled() {
		n, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram notifications disabled")
		} else {
			opts.Notifier = n
		}
	}

	if cfg.News.Enabled {
		opts.News = news.NewScraper(news.Options{
			URLTemplate:  cfg.News.URLTemplate,
			Selector:     cfg.News.Selector,
			MaxHeadlines: cfg.News.MaxHeadlines,
			Timeout:      cfg.News.Timeout,
		})
	}

	if !opts.Narrator.Enabled() {
		log.Warn().Str("provider", cfg.LLM.Provider).Msg("No LLM API key configured, narration disabled")
	}

	a.Orchestrator = orchestrator.New(opts)
	return a, nil
}

// Sources builds the price sources in the configured fallback order
func Sources(cfg config.SourcesConfig) ([]fetcher.Source, error) {
	if len(cfg.Order) == 0 {
		return nil, fmt.Errorf("no price sources configured")
	}

	sources := make([]fetcher.Source, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		switch name {
		case "yahoo":
			sources = append(sources, yahoo.NewClient(yahoo.ClientOptions{
				BaseURL:         cfg.YahooBaseURL,
				RequestTimeout:  cfg.RequestTimeout,
				RequestsPerSec:  cfg.RequestsPerSec,
				MaxRetryTimeout: cfg.MaxRetryTimeout,
			}))
		case "finnhub":
			sources = append(sources, finnhub.NewClient(finnhub.ClientOptions{
				APIKey:          cfg.FinnhubAPIKey,
				BaseURL:         cfg.FinnhubBaseURL,
				RequestTimeout:  cfg.RequestTimeout,
				RequestsPerSec:  cfg.RequestsPerSec,
				MaxRetryTimeout: cfg.MaxRetryTimeout,
			}))
		case "twelvedata":
			sources = append(sources, twelvedata.NewClient(twelvedata.ClientOptions{
				APIKey:          cfg.TwelveAPIKey,
				BaseURL:         cfg.TwelveBaseURL,
				RequestTimeout:  cfg.RequestTimeout,
				RequestsPerSec:  cfg.RequestsPerSec,
				MaxRetryTimeout: cfg.MaxRetryTimeout,
			}))
		default:
			return nil, fmt.Errorf("unknown price source %q", name)
		}
	}
	return sources, nil
}

// Close releases database and cache connections
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
	a.closers = nil
}
