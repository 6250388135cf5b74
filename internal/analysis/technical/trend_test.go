package technical

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearSeries builds n daily bars whose close rises by step per bar
func linearSeries(n int, start, step float64) model.Series {
	series := make(model.Series, n)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range series {
		open := start + float64(i)*step
		series[i] = model.Bar{
			Time:  day.AddDate(0, 0, i),
			Open:  open,
			Close: open + step,
			High:  open + 2*step,
			Low:   open - step,
		}
	}
	return series
}

func TestPercentileMatchesLinearInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "single value", values: []float64{3}, p: 90, want: 3},
		{name: "ten values", values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, p: 90, want: 9.1},
		{name: "unsorted", values: []float64{5, 1, 4, 2, 3}, p: 90, want: 4.6},
		{name: "median of even count", values: []float64{4, 1, 3, 2}, p: 50, want: 2.5},
		{name: "max", values: []float64{4, 1, 3, 2}, p: 100, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.values, tt.p), 1e-9)
		})
	}

	assert.True(t, math.IsNaN(Percentile(nil, 90)))
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7, 9}), 1e-9)
	assert.InDelta(t, -0.5, Slope([]float64{10, 9.5, 9, 8.5}), 1e-9)
	assert.InDelta(t, 0.0, Slope([]float64{4, 4, 4}), 1e-9)
	// polyfit([0,1,2,3], [1,2,2,5], 1) -> slope 1.2
	assert.InDelta(t, 1.2, Slope([]float64{1, 2, 2, 5}), 1e-9)
	assert.True(t, math.IsNaN(Slope([]float64{1})))
}

func TestPopStdDev(t *testing.T) {
	assert.InDelta(t, 2.0, PopStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.InDelta(t, 5.0, Mean([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestSummarizeWindows(t *testing.T) {
	series := linearSeries(100, 100, 1)
	stats := Summarize(series)

	assert.Equal(t, 100, stats.Bars)
	require.Len(t, stats.Windows, len(TrendWindows))

	for _, w := range stats.Windows {
		switch w.Label {
		case "5d", "30d", "90d":
			require.True(t, w.Available(), "window %s", w.Label)
			assert.InDelta(t, 1.0, *w.CloseSlope, 1e-9)
			// mean close of the trailing slice
			first := series[len(series)-w.Bars].Close
			last := series[len(series)-1].Close
			assert.InDelta(t, (first+last)/2, *w.MeanClose, 1e-9)
			assert.NotNil(t, w.MeanDeltaOC)
			assert.NotNil(t, w.MeanDeltaHL)
		case "180d", "365d":
			assert.False(t, w.Available(), "window %s", w.Label)
			assert.Nil(t, w.MeanDeltaOC)
			assert.Nil(t, w.MeanDeltaHL)
			assert.Nil(t, w.MeanClose)
			assert.Nil(t, w.CloseSlope)
		}
	}

	year, ok := stats.Window("365d")
	require.True(t, ok)
	assert.Equal(t, 250, year.Bars)
}

func TestSummarizeExactWindowUsesWholeSeries(t *testing.T) {
	series := linearSeries(5, 10, 0.5)
	stats := Summarize(series)

	w, ok := stats.Window("5d")
	require.True(t, ok)
	require.True(t, w.Available())

	var sumClose float64
	for _, bar := range series {
		sumClose += bar.Close
	}
	assert.InDelta(t, sumClose/5, *w.MeanClose, 1e-9)
	assert.InDelta(t, 0.5, *w.CloseSlope, 1e-9)

	thirty, ok := stats.Window("30d")
	require.True(t, ok)
	assert.False(t, thirty.Available())
}

func TestSummarizeUsesAbsoluteDeltas(t *testing.T) {
	// Alternating up and down bars: signed deltas would average to zero
	series := model.Series{
		{Open: 100, Close: 102, High: 103, Low: 99},
		{Open: 100, Close: 98, High: 101, Low: 97},
		{Open: 100, Close: 102, High: 103, Low: 99},
		{Open: 100, Close: 98, High: 101, Low: 97},
		{Open: 100, Close: 102, High: 103, Low: 99},
	}

	stats := Summarize(series)

	require.NotNil(t, stats.Stats.MeanDeltaOC)
	assert.InDelta(t, 2.0, *stats.Stats.MeanDeltaOC, 1e-9)
	assert.InDelta(t, 0.0, *stats.Stats.StdDeltaOC, 1e-9)
	assert.InDelta(t, 2.0, *stats.Stats.P90DeltaOC, 1e-9)
	assert.InDelta(t, 4.0, *stats.Stats.MeanDeltaHL, 1e-9)

	w, _ := stats.Window("5d")
	assert.InDelta(t, 2.0, *w.MeanDeltaOC, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)

	assert.Equal(t, 0, stats.Bars)
	assert.Nil(t, stats.Stats.MeanDeltaOC)
	assert.Nil(t, stats.Stats.StdDeltaOC)
	assert.Nil(t, stats.Stats.P90DeltaOC)
	assert.Nil(t, stats.Stats.MeanDeltaHL)
	require.Len(t, stats.Windows, len(TrendWindows))
	for _, w := range stats.Windows {
		assert.False(t, w.Available())
	}
}

func TestSummarizeSkipsUnusableBars(t *testing.T) {
	series := linearSeries(6, 100, 1)
	series[2].Open = 0

	stats := Summarize(series)

	require.NotNil(t, stats.Stats.MeanDeltaOC)
	assert.False(t, math.IsNaN(*stats.Stats.MeanDeltaOC))
	w, _ := stats.Window("5d")
	require.True(t, w.Available())
	assert.NotNil(t, w.MeanDeltaOC)
}

func TestIndicatorsKeys(t *testing.T) {
	stats := Summarize(linearSeries(40, 50, 0.25))
	indicators := stats.Indicators()

	assert.Len(t, indicators, 4*len(TrendWindows))
	assert.NotNil(t, indicators["mean_delta_oc_5d"])
	assert.NotNil(t, indicators["close_slope_30d"])
	assert.Contains(t, indicators, "close_slope_365d")
	assert.Nil(t, indicators["close_slope_365d"])
	assert.Nil(t, indicators["mean_close_90d"])
}

func TestSummarizePure(t *testing.T) {
	series := linearSeries(60, 20, 0.3)
	snapshot := append(model.Series(nil), series...)

	assert.Equal(t, Summarize(series), Summarize(series))
	assert.Equal(t, snapshot, series)
}
