package technical

import (
	"github.com/Alias1177/PriceWatch/internal/analysis/market"
	"github.com/Alias1177/PriceWatch/internal/model"
)

// TrendWindow is a trailing window used for trend indicators
type TrendWindow struct {
	Label string
	Bars  int
}

// TrendWindows lists the trailing windows in ascending order.
// "365d" is approximated by 250 trading days.
var TrendWindows = []TrendWindow{
	{Label: "5d", Bars: 5},
	{Label: "30d", Bars: 30},
	{Label: "90d", Bars: 90},
	{Label: "180d", Bars: 180},
	{Label: "365d", Bars: 250},
}

// Summarize computes descriptive statistics and per-window trend indicators
// over a long daily series, using absolute deltas
func Summarize(series model.Series) model.TrendStats {
	deltas := market.AbsDeltas(series)

	return model.TrendStats{
		Bars:    len(series),
		Stats:   Describe(deltas),
		Windows: Trends(deltas),
	}
}

// Describe returns mean, population std and 90th percentile of each delta.
// Unusable deltas are skipped; all fields are nil when nothing remains.
func Describe(deltas []model.DeltaBar) model.DescriptiveStats {
	oc, hl := deltaColumns(deltas)

	var stats model.DescriptiveStats
	if len(oc) > 0 {
		stats.MeanDeltaOC = model.FinitePtr(Mean(oc))
		stats.StdDeltaOC = model.FinitePtr(PopStdDev(oc))
		stats.P90DeltaOC = model.FinitePtr(Percentile(oc, 90))
	}
	if len(hl) > 0 {
		stats.MeanDeltaHL = model.FinitePtr(Mean(hl))
		stats.StdDeltaHL = model.FinitePtr(PopStdDev(hl))
		stats.P90DeltaHL = model.FinitePtr(Percentile(hl, 90))
	}
	return stats
}

// Trends computes the trend indicators for every TrendWindows entry.
// Windows longer than the series are returned with nil values.
func Trends(deltas []model.DeltaBar) []model.WindowTrend {
	out := make([]model.WindowTrend, 0, len(TrendWindows))
	for _, w := range TrendWindows {
		trend := model.WindowTrend{Label: w.Label, Bars: w.Bars}
		if len(deltas) >= w.Bars {
			fillWindow(&trend, deltas[len(deltas)-w.Bars:])
		}
		out = append(out, trend)
	}
	return out
}

func fillWindow(trend *model.WindowTrend, recent []model.DeltaBar) {
	oc, hl := deltaColumns(recent)

	closes := make([]float64, len(recent))
	for i, bar := range recent {
		closes[i] = bar.Close
	}

	trend.MeanDeltaOC = model.FinitePtr(Mean(oc))
	trend.MeanDeltaHL = model.FinitePtr(Mean(hl))
	trend.MeanClose = model.FinitePtr(Mean(closes))
	trend.CloseSlope = model.FinitePtr(Slope(closes))
}

func deltaColumns(deltas []model.DeltaBar) (oc, hl []float64) {
	oc = make([]float64, len(deltas))
	hl = make([]float64, len(deltas))
	for i, d := range deltas {
		oc[i] = d.DeltaOC
		hl[i] = d.DeltaHL
	}
	return finite(oc), finite(hl)
}
