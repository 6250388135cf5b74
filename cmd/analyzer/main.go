package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Alias1177/PriceWatch/internal/app"
	"github.com/Alias1177/PriceWatch/internal/config"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/monitor"
	"github.com/Alias1177/PriceWatch/internal/orchestrator"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		ticker     = flag.String("ticker", "AAPL", "ticker symbol to evaluate")
		mode       = flag.String("mode", "price", "one of: price, history, decision, watchlist")
		narrate    = flag.Bool("narrate", false, "generate a comment even when no alert fired")
		withNews   = flag.Bool("news", false, "include scraped headlines in the decision prompt")
		asJSON     = flag.Bool("json", false, "print results as JSON")
	)
	flag.Parse()

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	printConfig(cfg)

	// 3. Wire components
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer a.Close()

	symbol := strings.ToUpper(strings.TrimSpace(*ticker))
	o := a.Orchestrator

	var result any
	switch *mode {
	case "price":
		ev := o.Run(ctx, symbol, o.Defaults(), *narrate)
		result = ev
		if !*asJSON {
			printEvaluation(os.Stdout, ev)
		}
	case "history":
		trend := o.Trend(ctx, symbol)
		result = trend
		if !*asJSON {
			printTrend(os.Stdout, symbol, trend)
		}
	case "decision":
		d := o.Decide(ctx, symbol, o.Defaults(), *withNews)
		result = d
		if !*asJSON {
			printEvaluation(os.Stdout, orchestrator.Evaluation{Record: d.Record})
			printTrend(os.Stdout, symbol, d.Trend)
			fmt.Println("\n===== DECISION =====")
			fmt.Println(d.Decision)
		}
	case "watchlist":
		mon := monitor.New(o, monitor.Options{
			Watchlist:   cfg.Monitor.Watchlist,
			Thresholds:  cfg.Thresholds,
			Concurrency: cfg.Monitor.Concurrency,
		})
		records := mon.RunOnce(ctx)
		result = records
		if !*asJSON {
			for _, rec := range records {
				printRecord(os.Stdout, rec)
			}
		}
	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode result")
		}
	}
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Strs("Sources", cfg.Sources.Order).
		Float64("StaticOC", cfg.Thresholds.StaticOC).
		Float64("StaticHL", cfg.Thresholds.StaticHL).
		Int("DynamicWindow", cfg.Thresholds.DynamicWindow).
		Float64("StdMultiplier", cfg.Thresholds.StdMultiplier).
		Str("LLMProvider", cfg.LLM.Provider).
		Bool("Database", cfg.Database.Enabled).
		Str("Cache", cfg.Cache.Backend).
		Msg("Configuration loaded")
}

func printEvaluation(w io.Writer, ev orchestrator.Evaluation) {
	fmt.Fprintln(w, "\n===== PRICE CHECK =====")
	printRecord(w, ev.Record)
	if ev.Verdict.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", ev.Verdict.Reason)
	}
	if b := ev.Verdict.Baseline; b != nil {
		fmt.Fprintf(w, "Baseline (%d bars): OC %.2f ± %.2f | HL %.2f ± %.2f\n",
			b.Window, b.OCMean, b.OCStd, b.HLMean, b.HLStd)
	}
	if ev.Comment != "" {
		fmt.Fprintf(w, "\nComment: %s\n", ev.Comment)
	}
}

func printRecord(w io.Writer, rec model.ResultRecord) {
	status := "ok"
	if rec.Alert {
		status = "ALERT"
	}
	fmt.Fprintf(w, "%-8s %s  %-5s  OC: %s  HL: %s\n",
		rec.Ticker, rec.TimestampISO(), status, pct(rec.Metrics.DeltaOC), pct(rec.Metrics.DeltaHL))
}

func printTrend(w io.Writer, ticker string, trend model.TrendStats) {
	fmt.Fprintf(w, "\n===== TREND %s (%d bars) =====\n", ticker, trend.Bars)
	s := trend.Stats
	fmt.Fprintf(w, "|ΔOC| mean %s std %s p90 %s\n", pct(s.MeanDeltaOC), pct(s.StdDeltaOC), pct(s.P90DeltaOC))
	fmt.Fprintf(w, "|ΔHL| mean %s std %s p90 %s\n", pct(s.MeanDeltaHL), pct(s.StdDeltaHL), pct(s.P90DeltaHL))

	for _, win := range trend.Windows {
		if !win.Available() {
			fmt.Fprintf(w, "%-5s n/a (needs %d bars)\n", win.Label, win.Bars)
			continue
		}
		fmt.Fprintf(w, "%-5s close %.2f slope %s  ΔOC %s  ΔHL %s\n",
			win.Label, *win.MeanClose, num(win.CloseSlope), pct(win.MeanDeltaOC), pct(win.MeanDeltaHL))
	}
}

func pct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func num(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%+.4f", *v)
}
