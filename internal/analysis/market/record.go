package market

import (
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
)

// Clock returns the current time. Injected so record timestamps are testable.
type Clock func() time.Time

// AssembleRecord builds the result record for one evaluation cycle.
// An empty series or an unusable latest bar yields nil metrics and no alert.
func AssembleRecord(ticker string, clock Clock, series []model.DeltaBar, verdict model.AlertVerdict, cfg model.ThresholdConfig) model.ResultRecord {
	if clock == nil {
		clock = time.Now
	}

	record := model.ResultRecord{
		Ticker:    ticker,
		Timestamp: clock().UTC(),
		Details:   cfg,
	}

	if len(series) == 0 {
		return record
	}

	latest := series[len(series)-1]
	record.Metrics = model.Metrics{
		DeltaOC: model.FinitePtr(latest.DeltaOC),
		DeltaHL: model.FinitePtr(latest.DeltaHL),
	}
	record.Alert = verdict.Triggered && record.Metrics.Usable()

	return record
}
