package model

// DescriptiveStats summarizes absolute deltas over the whole long series.
// Nil fields mean the series was empty.
type DescriptiveStats struct {
	MeanDeltaOC *float64 `json:"mean_delta_oc"`
	StdDeltaOC  *float64 `json:"std_delta_oc"`
	P90DeltaOC  *float64 `json:"90th_delta_oc"`
	MeanDeltaHL *float64 `json:"mean_delta_hl"`
	StdDeltaHL  *float64 `json:"std_delta_hl"`
	P90DeltaHL  *float64 `json:"90th_delta_hl"`
}

// WindowTrend holds trend indicators for one trailing window.
// All values are nil when the series is shorter than Bars.
type WindowTrend struct {
	Label       string   `json:"label"`
	Bars        int      `json:"bars"`
	MeanDeltaOC *float64 `json:"mean_delta_oc"`
	MeanDeltaHL *float64 `json:"mean_delta_hl"`
	MeanClose   *float64 `json:"mean_close"`
	CloseSlope  *float64 `json:"close_slope"`
}

// Available reports whether the window had enough bars
func (w WindowTrend) Available() bool {
	return w.MeanClose != nil
}

// TrendStats is the long-horizon summary fed to the decision narration
type TrendStats struct {
	Bars    int              `json:"bars"`
	Stats   DescriptiveStats `json:"stats"`
	Windows []WindowTrend    `json:"windows"`
}

// Window looks up a trailing window by label ("5d", "365d", ...)
func (t TrendStats) Window(label string) (WindowTrend, bool) {
	for _, w := range t.Windows {
		if w.Label == label {
			return w, true
		}
	}
	return WindowTrend{}, false
}

// Indicators flattens the per-window values into label-suffixed keys
// (mean_delta_oc_5d, close_slope_365d, ...)
func (t TrendStats) Indicators() map[string]*float64 {
	out := make(map[string]*float64, len(t.Windows)*4)
	for _, w := range t.Windows {
		out["mean_delta_oc_"+w.Label] = w.MeanDeltaOC
		out["mean_delta_hl_"+w.Label] = w.MeanDeltaHL
		out["mean_close_"+w.Label] = w.MeanClose
		out["close_slope_"+w.Label] = w.CloseSlope
	}
	return out
}
