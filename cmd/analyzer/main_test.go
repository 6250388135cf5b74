package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPrintRecord(t *testing.T) {
	oc, hl := 5.5, 6.25
	var buf bytes.Buffer
	printRecord(&buf, model.ResultRecord{
		Ticker:    "AAPL",
		Timestamp: time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		Alert:     true,
		Metrics:   model.Metrics{DeltaOC: &oc, DeltaHL: &hl},
	})

	out := buf.String()
	assert.Contains(t, out, "ALERT")
	assert.Contains(t, out, "2024-03-01T14:30:00Z")
	assert.Contains(t, out, "OC: 5.50%")
	assert.Contains(t, out, "HL: 6.25%")
}

func TestPrintTrendUnavailableWindow(t *testing.T) {
	var buf bytes.Buffer
	printTrend(&buf, "AAPL", model.TrendStats{
		Windows: []model.WindowTrend{{Label: "90d", Bars: 90}},
	})

	assert.Contains(t, buf.String(), "90d   n/a (needs 90 bars)")
	assert.Contains(t, buf.String(), "mean N/A")
}
