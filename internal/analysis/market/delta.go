package market

import (
	"math"

	"github.com/Alias1177/PriceWatch/internal/model"
)

// SignedDeltas computes the short-horizon deltas used by the alert path:
//
//	delta_oc = (close - open) / open * 100
//	delta_hl = (high - low) / open * 100
//
// The input is not modified. Bars with a non-positive open get NaN deltas.
func SignedDeltas(series model.Series) []model.DeltaBar {
	out := make([]model.DeltaBar, len(series))
	for i, bar := range series {
		out[i] = model.DeltaBar{
			Bar:     bar,
			DeltaOC: percentOfOpen(bar.Close-bar.Open, bar.Open),
			DeltaHL: percentOfOpen(bar.High-bar.Low, bar.Open),
		}
	}
	return out
}

// AbsDeltas computes the long-horizon deltas used by the trend path:
//
//	delta_oc = |close - open| / open * 100
//	delta_hl = |high - low| / open * 100
func AbsDeltas(series model.Series) []model.DeltaBar {
	out := make([]model.DeltaBar, len(series))
	for i, bar := range series {
		out[i] = model.DeltaBar{
			Bar:     bar,
			DeltaOC: percentOfOpen(math.Abs(bar.Close-bar.Open), bar.Open),
			DeltaHL: percentOfOpen(math.Abs(bar.High-bar.Low), bar.Open),
		}
	}
	return out
}

func percentOfOpen(diff, open float64) float64 {
	if !(open > 0) || math.IsInf(open, 0) {
		return math.NaN()
	}
	return diff / open * 100
}
