package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Bar represents a single OHLC price observation
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume,omitempty"`
}

// Series is a chronologically ascending sequence of bars
type Series []Bar

// Latest returns the most recent bar, or false when the series is empty
func (s Series) Latest() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// DeltaBar is a Bar augmented with percentage deltas normalized by the open price.
// Deltas are NaN when the bar cannot be assessed (non-positive open).
type DeltaBar struct {
	Bar
	DeltaOC float64 `json:"delta_oc"`
	DeltaHL float64 `json:"delta_hl"`
}

// Usable reports whether both deltas are finite
func (d DeltaBar) Usable() bool {
	return isFinite(d.DeltaOC) && isFinite(d.DeltaHL)
}

// MarshalJSON writes unusable deltas as null
func (d DeltaBar) MarshalJSON() ([]byte, error) {
	type bar Bar
	return json.Marshal(struct {
		bar
		DeltaOC *float64 `json:"delta_oc"`
		DeltaHL *float64 `json:"delta_hl"`
	}{bar(d.Bar), FinitePtr(d.DeltaOC), FinitePtr(d.DeltaHL)})
}

// WindowSpec describes which slice of history a fetcher should return.
// Period and Interval use Yahoo-style notation ("1d", "5m", "1y").
type WindowSpec struct {
	Period   string `json:"period"`
	Interval string `json:"interval"`
}

// IntradayWindow is the short-horizon window used for alert evaluation
func IntradayWindow() WindowSpec {
	return WindowSpec{Period: "1d", Interval: "5m"}
}

// HistoryWindow is the long-horizon window used for trend statistics
func HistoryWindow() WindowSpec {
	return WindowSpec{Period: "1y", Interval: "1d"}
}

// Daily reports whether the window asks for daily bars
func (w WindowSpec) Daily() bool {
	return w.Interval == "1d"
}

// Lookback converts Period into a wall-clock duration.
// Supported units: d, wk, mo, y ("5d", "1mo", "1y").
func (w WindowSpec) Lookback() (time.Duration, error) {
	return parseSpan(w.Period, map[string]time.Duration{
		"d":  24 * time.Hour,
		"wk": 7 * 24 * time.Hour,
		"mo": 30 * 24 * time.Hour,
		"y":  365 * 24 * time.Hour,
	})
}

// Step converts Interval into the bar duration.
// Supported units: m, h, d, wk ("5m", "1h", "1d").
func (w WindowSpec) Step() (time.Duration, error) {
	return parseSpan(w.Interval, map[string]time.Duration{
		"m":  time.Minute,
		"h":  time.Hour,
		"d":  24 * time.Hour,
		"wk": 7 * 24 * time.Hour,
	})
}

func parseSpan(s string, units map[string]time.Duration) (time.Duration, error) {
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 {
		return 0, fmt.Errorf("invalid span %q", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid span %q", s)
	}
	unit, ok := units[s[i:]]
	if !ok {
		return 0, fmt.Errorf("unsupported unit in span %q", s)
	}
	return time.Duration(n) * unit, nil
}

func (w WindowSpec) String() string {
	return w.Period + "/" + w.Interval
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FinitePtr returns nil for NaN/Inf values so they serialize as null
func FinitePtr(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}
