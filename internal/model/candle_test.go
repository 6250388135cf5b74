package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowSpecSpans(t *testing.T) {
	tests := []struct {
		spec     WindowSpec
		lookback time.Duration
		step     time.Duration
	}{
		{IntradayWindow(), 24 * time.Hour, 5 * time.Minute},
		{HistoryWindow(), 365 * 24 * time.Hour, 24 * time.Hour},
		{WindowSpec{Period: "3mo", Interval: "1h"}, 90 * 24 * time.Hour, time.Hour},
		{WindowSpec{Period: "2wk", Interval: "1wk"}, 14 * 24 * time.Hour, 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.spec.String(), func(t *testing.T) {
			lb, err := tt.spec.Lookback()
			require.NoError(t, err)
			assert.Equal(t, tt.lookback, lb)

			step, err := tt.spec.Step()
			require.NoError(t, err)
			assert.Equal(t, tt.step, step)
		})
	}
}

func TestWindowSpecInvalidSpans(t *testing.T) {
	for _, period := range []string{"", "d", "0d", "1x", "max"} {
		_, err := WindowSpec{Period: period, Interval: "1d"}.Lookback()
		assert.Error(t, err, period)
	}
}

func TestSeriesLatest(t *testing.T) {
	_, ok := Series{}.Latest()
	assert.False(t, ok)

	s := Series{{Close: 1}, {Close: 2}}
	last, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Close)
}

func TestFinitePtr(t *testing.T) {
	assert.Nil(t, FinitePtr(math.NaN()))
	assert.Nil(t, FinitePtr(math.Inf(-1)))
	require.NotNil(t, FinitePtr(1.5))
	assert.Equal(t, 1.5, *FinitePtr(1.5))
}

func TestDeltaBarJSON(t *testing.T) {
	d := DeltaBar{
		Bar:     Bar{Time: time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), Open: 0, High: 1, Low: 0.5, Close: 1},
		DeltaOC: math.NaN(),
		DeltaHL: math.Inf(1),
	}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2024-03-01T14:30:00Z","open":0,"high":1,"low":0.5,"close":1,"delta_oc":null,"delta_hl":null}`, string(b))

	d.DeltaOC, d.DeltaHL = 1.5, 2
	b, err = json.Marshal([]DeltaBar{d})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"delta_oc":1.5`)
}

func TestBaselineJSON(t *testing.T) {
	b, err := json.Marshal(Baseline{Window: 3, OCMean: math.NaN(), OCStd: 0.5, HLMean: 1, HLStd: 0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"window":3,"oc_mean":null,"oc_std":0.5,"hl_mean":1,"hl_std":0}`, string(b))
}
