package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/orchestrator"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runner runs one full evaluation cycle for a ticker
type Runner interface {
	Run(ctx context.Context, ticker string, cfg model.ThresholdConfig, narrate bool) orchestrator.Evaluation
}

// Options configures a Monitor
type Options struct {
	Schedule    string
	Watchlist   []string
	Thresholds  model.ThresholdConfig
	Concurrency int
}

// Monitor evaluates a watchlist on a cron schedule
type Monitor struct {
	runner      Runner
	schedule    string
	watchlist   []string
	thresholds  model.ThresholdConfig
	concurrency int
	cron        *cron.Cron
	logger      zerolog.Logger
}

// New creates a watchlist monitor
func New(runner Runner, opts Options) *Monitor {
	if opts.Schedule == "" {
		opts.Schedule = "@every 5m"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	watchlist := make([]string, 0, len(opts.Watchlist))
	for _, t := range opts.Watchlist {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			watchlist = append(watchlist, t)
		}
	}

	return &Monitor{
		runner:      runner,
		schedule:    opts.Schedule,
		watchlist:   watchlist,
		thresholds:  opts.Thresholds,
		concurrency: opts.Concurrency,
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:      log.With().Str("component", "monitor").Logger(),
	}
}

// Start schedules the watchlist run; ctx bounds every scheduled cycle
func (m *Monitor) Start(ctx context.Context) error {
	if len(m.watchlist) == 0 {
		return errors.New("monitor: empty watchlist")
	}

	if _, err := m.cron.AddFunc(m.schedule, func() {
		m.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("monitor: invalid schedule %q: %w", m.schedule, err)
	}

	m.cron.Start()
	m.logger.Info().
		Str("schedule", m.schedule).
		Strs("watchlist", m.watchlist).
		Int("concurrency", m.concurrency).
		Msg("Watchlist monitor started")
	return nil
}

// Stop stops the scheduler and waits for a running cycle to finish
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
	m.logger.Info().Msg("Watchlist monitor stopped")
}

// RunOnce evaluates every ticker with at most concurrency in flight.
// Records are returned in watchlist order.
func (m *Monitor) RunOnce(ctx context.Context) []model.ResultRecord {
	records := make([]model.ResultRecord, len(m.watchlist))
	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup

	for i, ticker := range m.watchlist {
		if ctx.Err() != nil {
			m.logger.Warn().Err(ctx.Err()).Msg("Cycle cancelled")
			wg.Wait()
			return records[:i]
		}
		select {
		case <-ctx.Done():
			m.logger.Warn().Err(ctx.Err()).Msg("Cycle cancelled")
			wg.Wait()
			return records[:i]
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			defer func() { <-sem }()
			records[i] = m.runner.Run(ctx, ticker, m.thresholds, false).Record
		}(i, ticker)
	}
	wg.Wait()

	alerts := 0
	for _, r := range records {
		if r.Alert {
			alerts++
		}
	}
	m.logger.Info().Int("tickers", len(records)).Int("alerts", alerts).Msg("Watchlist cycle complete")
	return records
}
