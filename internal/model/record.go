package model

import "time"

// Metrics are the latest bar's signed deltas. Nil means the bar was unusable.
type Metrics struct {
	DeltaOC *float64 `json:"delta_oc"`
	DeltaHL *float64 `json:"delta_hl"`
}

// Usable reports whether both metrics are present
func (m Metrics) Usable() bool {
	return m.DeltaOC != nil && m.DeltaHL != nil
}

// ResultRecord is the output of one evaluation cycle. It is built once by
// market.AssembleRecord and passed by value afterwards.
type ResultRecord struct {
	Ticker    string          `json:"ticker"`
	Timestamp time.Time       `json:"timestamp"`
	Alert     bool            `json:"alert"`
	Metrics   Metrics         `json:"metrics"`
	Details   ThresholdConfig `json:"details"`
}

// AlertFlag returns the alert as 0/1 for storage
func (r ResultRecord) AlertFlag() int {
	if r.Alert {
		return 1
	}
	return 0
}

// TimestampISO formats the timestamp as ISO-8601 UTC
func (r ResultRecord) TimestampISO() string {
	return r.Timestamp.UTC().Format(time.RFC3339Nano)
}
