package market

import (
	"math"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Evaluate checks the latest bar of a signed delta series against the static
// thresholds and, failing those, against a rolling baseline of the preceding
// cfg.DynamicWindow bars. The first rule that fires decides the verdict.
func Evaluate(series []model.DeltaBar, cfg model.ThresholdConfig) model.AlertVerdict {
	return EvaluateLogged(zerolog.Nop(), series, cfg)
}

// EvaluateLogged is Evaluate with debug events at each decision point
func EvaluateLogged(logger zerolog.Logger, series []model.DeltaBar, cfg model.ThresholdConfig) model.AlertVerdict {
	// 1. Nothing to look at
	if len(series) == 0 {
		logger.Debug().Msg("No bars to evaluate")
		return model.AlertVerdict{Reason: model.ReasonNoData, LatestDeltaOC: math.NaN(), LatestDeltaHL: math.NaN()}
	}

	latest := series[len(series)-1]
	verdict := model.AlertVerdict{
		LatestDeltaOC: latest.DeltaOC,
		LatestDeltaHL: latest.DeltaHL,
	}

	// 2. The latest bar must be assessable
	if !latest.Usable() {
		logger.Warn().Time("bar_time", latest.Time).Float64("open", latest.Open).Msg("Latest bar has unusable deltas")
		verdict.Reason = model.ReasonInvalidBar
		return verdict
	}

	logger.Debug().
		Float64("delta_oc", latest.DeltaOC).
		Float64("delta_hl", latest.DeltaHL).
		Msg("Latest deltas")

	// 3. Static thresholds
	if math.Abs(latest.DeltaOC) >= cfg.StaticOC {
		logger.Debug().Float64("threshold", cfg.StaticOC).Msg("Static open-close threshold exceeded")
		verdict.Triggered = true
		verdict.Reason = model.ReasonStaticOC
		return verdict
	}
	if math.Abs(latest.DeltaHL) >= cfg.StaticHL {
		logger.Debug().Float64("threshold", cfg.StaticHL).Msg("Static high-low threshold exceeded")
		verdict.Triggered = true
		verdict.Reason = model.ReasonStaticHL
		return verdict
	}

	// 4. Dynamic baseline, excluding the latest bar
	if cfg.DynamicWindow < 1 || len(series) <= cfg.DynamicWindow+1 {
		logger.Debug().
			Int("bars", len(series)).
			Int("window", cfg.DynamicWindow).
			Msg("Not enough history for dynamic check")
		verdict.Reason = model.ReasonInsufficientHistory
		return verdict
	}

	baseline := rollingBaseline(series[len(series)-1-cfg.DynamicWindow : len(series)-1])
	verdict.Baseline = &baseline

	logger.Debug().
		Float64("oc_mean", baseline.OCMean).
		Float64("oc_std", baseline.OCStd).
		Float64("hl_mean", baseline.HLMean).
		Float64("hl_std", baseline.HLStd).
		Msg("Dynamic baseline")

	// An unusable bar in the window leaves nothing to compare against
	if !baseline.Finite() {
		logger.Debug().Msg("Baseline window contains unusable bars")
		verdict.Reason = model.ReasonInsufficientHistory
		return verdict
	}

	// Only upward deviation counts
	if latest.DeltaOC-baseline.OCMean > cfg.StdMultiplier*baseline.OCStd {
		logger.Debug().Float64("multiplier", cfg.StdMultiplier).Msg("Dynamic open-close threshold exceeded")
		verdict.Triggered = true
		verdict.Reason = model.ReasonDynamicOC
		return verdict
	}
	if latest.DeltaHL-baseline.HLMean > cfg.StdMultiplier*baseline.HLStd {
		logger.Debug().Float64("multiplier", cfg.StdMultiplier).Msg("Dynamic high-low threshold exceeded")
		verdict.Triggered = true
		verdict.Reason = model.ReasonDynamicHL
		return verdict
	}

	// 5. Nothing fired
	verdict.Reason = model.ReasonWithinThresholds
	return verdict
}

func rollingBaseline(window []model.DeltaBar) model.Baseline {
	oc := make([]float64, len(window))
	hl := make([]float64, len(window))
	for i, bar := range window {
		oc[i] = bar.DeltaOC
		hl[i] = bar.DeltaHL
	}

	b := model.Baseline{Window: len(window)}
	b.OCMean, b.OCStd = stat.PopMeanStdDev(oc, nil)
	b.HLMean, b.HLStd = stat.PopMeanStdDev(hl, nil)
	return b
}
