package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/Alias1177/PriceWatch/internal/analysis/market"
	"github.com/Alias1177/PriceWatch/internal/analysis/technical"
	"github.com/Alias1177/PriceWatch/internal/database"
	"github.com/Alias1177/PriceWatch/internal/fetcher"
	"github.com/Alias1177/PriceWatch/internal/metrics"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/narration"
	"github.com/Alias1177/PriceWatch/internal/trace"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store persists result records
type Store interface {
	LogPriceResult(ctx context.Context, rec model.ResultRecord) error
}

// Notifier delivers alerting records
type Notifier interface {
	Notify(ctx context.Context, rec model.ResultRecord, comment string) error
}

// NewsSource supplies headline context for decisions
type NewsSource interface {
	Headlines(ctx context.Context, ticker string) (string, error)
}

// Options holds the collaborators. Only Intraday is required.
type Options struct {
	Intraday       fetcher.Fetcher
	History        fetcher.Fetcher
	IntradayWindow model.WindowSpec
	HistoryWindow  model.WindowSpec
	Defaults       model.ThresholdConfig
	Store          Store
	Notifier       Notifier
	News           NewsSource
	Narrator       *narration.Service
	Metrics        *metrics.Recorder
	Clock          market.Clock
}

// Orchestrator runs evaluation cycles. A cycle always yields a record:
// collaborator failures are logged and counted, never returned.
type Orchestrator struct {
	intraday       fetcher.Fetcher
	history        fetcher.Fetcher
	intradayWindow model.WindowSpec
	historyWindow  model.WindowSpec
	defaults       model.ThresholdConfig
	store          Store
	notifier       Notifier
	news           NewsSource
	narrator       *narration.Service
	metrics        *metrics.Recorder
	clock          market.Clock
	logger         zerolog.Logger
}

// Evaluation is the full outcome of one cycle
type Evaluation struct {
	Record  model.ResultRecord `json:"record"`
	Series  []model.DeltaBar   `json:"series"`
	Verdict model.AlertVerdict `json:"verdict"`
	Comment string             `json:"comment,omitempty"`
}

// Decision bundles the decision narration with its inputs
type Decision struct {
	Record   model.ResultRecord `json:"record"`
	Trend    model.TrendStats   `json:"trend"`
	News     string             `json:"news"`
	Decision string             `json:"decision"`
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	if opts.History == nil {
		opts.History = opts.Intraday
	}
	if opts.IntradayWindow == (model.WindowSpec{}) {
		opts.IntradayWindow = model.IntradayWindow()
	}
	if opts.HistoryWindow == (model.WindowSpec{}) {
		opts.HistoryWindow = model.HistoryWindow()
	}
	if opts.Defaults == (model.ThresholdConfig{}) {
		opts.Defaults = model.DefaultThresholds()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Orchestrator{
		intraday:       opts.Intraday,
		history:        opts.History,
		intradayWindow: opts.IntradayWindow,
		historyWindow:  opts.HistoryWindow,
		defaults:       opts.Defaults,
		store:          opts.Store,
		notifier:       opts.Notifier,
		news:           opts.News,
		narrator:       opts.Narrator,
		metrics:        opts.Metrics,
		clock:          opts.Clock,
		logger:         log.With().Str("component", "orchestrator").Logger(),
	}
}

// Defaults returns the configured thresholds
func (o *Orchestrator) Defaults() model.ThresholdConfig {
	return o.defaults
}

// Evaluate fetches the intraday window and evaluates the latest bar.
// It has no side effects beyond logging and metrics.
func (o *Orchestrator) Evaluate(ctx context.Context, ticker string, cfg model.ThresholdConfig) Evaluation {
	ctx, span := trace.StartSpan(ctx, "orchestrator.Evaluate", ticker)
	defer span.End()

	logger := o.logger.With().Str("ticker", ticker).Logger()

	// 1. Fetch; any error is treated as absent input
	series, err := o.intraday.Fetch(ctx, ticker, o.intradayWindow)
	if err != nil {
		logger.Warn().Err(err).Msg("No intraday data")
		series = nil
	}

	// 2. Deltas and verdict
	deltas := market.SignedDeltas(series)
	verdict := market.EvaluateLogged(logger, deltas, cfg)

	// 3. Record
	rec := market.AssembleRecord(ticker, o.clock, deltas, verdict, cfg)

	o.metrics.RecordEvaluation(ticker, string(verdict.Reason), rec.Alert)
	if rec.Metrics.DeltaOC != nil {
		o.metrics.RecordLastDelta(ticker, *rec.Metrics.DeltaOC)
	}

	logger.Info().
		Bool("alert", rec.Alert).
		Str("reason", string(verdict.Reason)).
		Int("bars", len(deltas)).
		Msg("Evaluation complete")

	return Evaluation{Record: rec, Series: deltas, Verdict: verdict}
}

// Run evaluates, persists the record and notifies on alert.
// With narrate set, a comment is generated for every record; otherwise
// only alerts are narrated, and only when a provider is configured.
func (o *Orchestrator) Run(ctx context.Context, ticker string, cfg model.ThresholdConfig, narrate bool) Evaluation {
	ev := o.Evaluate(ctx, ticker, cfg)

	if narrate || (ev.Record.Alert && o.narrator.Enabled()) {
		ev.Comment = o.Comment(ctx, ev.Record)
	}

	o.persist(ctx, ev.Record)

	if ev.Record.Alert && o.notifier != nil {
		if err := o.notifier.Notify(ctx, ev.Record, ev.Comment); err != nil {
			o.metrics.RecordError("notify")
			o.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to notify")
		}
	}

	return ev
}

func (o *Orchestrator) persist(ctx context.Context, rec model.ResultRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.LogPriceResult(ctx, rec); err != nil {
		if errors.Is(err, database.ErrDisabled) {
			return
		}
		o.metrics.RecordError("database")
		o.logger.Error().Err(err).Str("ticker", rec.Ticker).Msg("Failed to persist record")
	}
}

// Comment narrates a record; falls back to a warning text
func (o *Orchestrator) Comment(ctx context.Context, rec model.ResultRecord) string {
	ctx, span := trace.StartSpan(ctx, "orchestrator.Comment", rec.Ticker)
	defer span.End()
	return o.narrator.Comment(ctx, rec)
}

// Trend computes long-horizon statistics. Missing history yields all-nil stats.
func (o *Orchestrator) Trend(ctx context.Context, ticker string) model.TrendStats {
	ctx, span := trace.StartSpan(ctx, "orchestrator.Trend", ticker)
	defer span.End()

	series, err := o.history.Fetch(ctx, ticker, o.historyWindow)
	if err != nil {
		o.logger.Warn().Err(err).Str("ticker", ticker).Msg("No history data")
		series = nil
	}
	return technical.Summarize(series)
}

// Decide evaluates the ticker, summarizes its history, optionally gathers
// headlines and asks the narrator for a decision. Nothing is persisted.
func (o *Orchestrator) Decide(ctx context.Context, ticker string, cfg model.ThresholdConfig, withNews bool) Decision {
	ctx, span := trace.StartSpan(ctx, "orchestrator.Decide", ticker)
	defer span.End()

	ev := o.Evaluate(ctx, ticker, cfg)
	trend := o.Trend(ctx, ticker)

	var news string
	if withNews && o.news != nil {
		headlines, err := o.news.Headlines(ctx, ticker)
		if err != nil {
			o.metrics.RecordError("news")
			o.logger.Warn().Err(err).Str("ticker", ticker).Msg("Continuing without news")
		} else {
			news = headlines
		}
	}

	decision := o.narrator.Decide(ctx, narration.DecisionInput{
		Record: ev.Record,
		Trend:  trend,
		News:   news,
	})

	return Decision{Record: ev.Record, Trend: trend, News: news, Decision: decision}
}
