package model

import "encoding/json"

// ThresholdConfig holds the alert thresholds for a single evaluation
type ThresholdConfig struct {
	StaticOC      float64 `json:"static_oc_threshold" query:"static_oc" yaml:"static_oc" default:"5.0" validate:"gt=0"`
	StaticHL      float64 `json:"static_hl_threshold" query:"static_hl" yaml:"static_hl" default:"7.0" validate:"gt=0"`
	DynamicWindow int     `json:"dynamic_window" query:"dynamic_window" yaml:"dynamic_window" default:"3" validate:"min=1"`
	StdMultiplier float64 `json:"std_multiplier" query:"std_multiplier" yaml:"std_multiplier" default:"2.0" validate:"gt=0"`
}

// DefaultThresholds returns the stock thresholds: 5% open-close, 7% high-low,
// a 3 bar baseline and a 2 sigma multiplier
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		StaticOC:      5.0,
		StaticHL:      7.0,
		DynamicWindow: 3,
		StdMultiplier: 2.0,
	}
}

// AlertReason explains which rule decided a verdict
type AlertReason string

const (
	ReasonNoData              AlertReason = "no_data"
	ReasonInvalidBar          AlertReason = "invalid_bar"
	ReasonStaticOC            AlertReason = "static_oc"
	ReasonStaticHL            AlertReason = "static_hl"
	ReasonDynamicOC           AlertReason = "dynamic_oc"
	ReasonDynamicHL           AlertReason = "dynamic_hl"
	ReasonInsufficientHistory AlertReason = "insufficient_history"
	ReasonWithinThresholds    AlertReason = "within_thresholds"
)

// Baseline holds the rolling mean/std the dynamic check compared against.
// Values are NaN when the window contained an unusable bar.
type Baseline struct {
	Window int
	OCMean float64
	OCStd  float64
	HLMean float64
	HLStd  float64
}

// Finite reports whether every statistic is a usable number
func (b Baseline) Finite() bool {
	return isFinite(b.OCMean) && isFinite(b.OCStd) && isFinite(b.HLMean) && isFinite(b.HLStd)
}

// MarshalJSON writes NaN statistics as null
func (b Baseline) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Window int      `json:"window"`
		OCMean *float64 `json:"oc_mean"`
		OCStd  *float64 `json:"oc_std"`
		HLMean *float64 `json:"hl_mean"`
		HLStd  *float64 `json:"hl_std"`
	}{b.Window, FinitePtr(b.OCMean), FinitePtr(b.OCStd), FinitePtr(b.HLMean), FinitePtr(b.HLStd)})
}

// AlertVerdict is the outcome of evaluating the latest bar against the thresholds
type AlertVerdict struct {
	Triggered     bool        `json:"triggered"`
	Reason        AlertReason `json:"reason"`
	LatestDeltaOC float64     `json:"-"`
	LatestDeltaHL float64     `json:"-"`
	Baseline      *Baseline   `json:"baseline,omitempty"` // nil when the dynamic check did not run
}
