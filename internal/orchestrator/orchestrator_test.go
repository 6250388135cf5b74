package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Alias1177/PriceWatch/internal/database"
	"github.com/Alias1177/PriceWatch/internal/fetcher"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/Alias1177/PriceWatch/internal/narration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

type fakeFetcher struct {
	series model.Series
	err    error
	specs  []model.WindowSpec
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, spec model.WindowSpec) (model.Series, error) {
	f.specs = append(f.specs, spec)
	return f.series, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	records []model.ResultRecord
	err     error
}

func (s *fakeStore) LogPriceResult(_ context.Context, rec model.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

type fakeNotifier struct {
	comments []string
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, _ model.ResultRecord, comment string) error {
	n.comments = append(n.comments, comment)
	return n.err
}

type fakeNews struct {
	text string
	err  error
}

func (n fakeNews) Headlines(context.Context, string) (string, error) { return n.text, n.err }

type fakeCompleter struct {
	reply string
	users []string
}

func (c *fakeCompleter) Complete(_ context.Context, _, user string, _ int) (string, error) {
	c.users = append(c.users, user)
	return c.reply, nil
}

// spikeSeries ends with a +10% open-close bar
func spikeSeries() model.Series {
	rows := [][4]float64{
		{100, 101, 102, 99},
		{100, 100.5, 101, 99.5},
		{100, 99.8, 100.5, 98},
		{100, 100.2, 101, 99},
		{100, 100.1, 100.8, 99.2},
		{100, 110, 111, 99},
	}
	series := make(model.Series, len(rows))
	for i, r := range rows {
		series[i] = model.Bar{
			Time: fixedNow.Add(time.Duration(i-len(rows)) * 5 * time.Minute),
			Open: r[0], Close: r[1], High: r[2], Low: r[3],
		}
	}
	return series
}

func quietSeries() model.Series {
	s := spikeSeries()
	s[len(s)-1] = model.Bar{Time: fixedNow, Open: 100, Close: 100.1, High: 100.2, Low: 99.9}
	return s
}

func dailySeries(n int) model.Series {
	series := make(model.Series, n)
	for i := range series {
		price := 100 + float64(i)
		series[i] = model.Bar{
			Time:  fixedNow.AddDate(0, 0, i-n),
			Open:  price,
			High:  price + 2,
			Low:   price - 1,
			Close: price + 1,
		}
	}
	return series
}

func newTestOrchestrator(intraday *fakeFetcher, opts Options) *Orchestrator {
	opts.Intraday = intraday
	opts.Clock = func() time.Time { return fixedNow }
	return New(opts)
}

func TestEvaluateAlert(t *testing.T) {
	f := &fakeFetcher{series: spikeSeries()}
	o := newTestOrchestrator(f, Options{})

	ev := o.Evaluate(context.Background(), "AAPL", model.DefaultThresholds())

	assert.True(t, ev.Record.Alert)
	assert.Equal(t, model.ReasonStaticOC, ev.Verdict.Reason)
	assert.Equal(t, fixedNow, ev.Record.Timestamp)
	require.NotNil(t, ev.Record.Metrics.DeltaOC)
	assert.InDelta(t, 10.0, *ev.Record.Metrics.DeltaOC, 1e-9)
	assert.Len(t, ev.Series, 6)
	assert.Equal(t, []model.WindowSpec{model.IntradayWindow()}, f.specs)
}

func TestEvaluateFetchFailureStillYieldsRecord(t *testing.T) {
	f := &fakeFetcher{err: fetcher.ErrNoData}
	o := newTestOrchestrator(f, Options{})

	ev := o.Evaluate(context.Background(), "AAPL", model.DefaultThresholds())

	assert.False(t, ev.Record.Alert)
	assert.Equal(t, model.ReasonNoData, ev.Verdict.Reason)
	assert.Nil(t, ev.Record.Metrics.DeltaOC)
	assert.Equal(t, "AAPL", ev.Record.Ticker)
	assert.Equal(t, model.DefaultThresholds(), ev.Record.Details)
}

func TestRunPersistsAndNotifies(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	completer := &fakeCompleter{reply: "Shares jumped 10%."}
	o := newTestOrchestrator(&fakeFetcher{series: spikeSeries()}, Options{
		Store:    store,
		Notifier: notifier,
		Narrator: narration.NewService(completer, 100, 400),
	})

	ev := o.Run(context.Background(), "AAPL", model.DefaultThresholds(), false)

	assert.Equal(t, "Shares jumped 10%.", ev.Comment)
	require.Len(t, store.records, 1)
	assert.Equal(t, ev.Record, store.records[0])
	assert.Equal(t, []string{"Shares jumped 10%."}, notifier.comments)
}

func TestRunQuietRecordIsPersistedNotNotified(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	completer := &fakeCompleter{reply: "Calm."}
	o := newTestOrchestrator(&fakeFetcher{series: quietSeries()}, Options{
		Store:    store,
		Notifier: notifier,
		Narrator: narration.NewService(completer, 100, 400),
	})

	ev := o.Run(context.Background(), "AAPL", model.DefaultThresholds(), false)

	assert.False(t, ev.Record.Alert)
	assert.Empty(t, ev.Comment)
	assert.Empty(t, completer.users)
	assert.Len(t, store.records, 1)
	assert.Empty(t, notifier.comments)
}

func TestRunNarrateWithoutProvider(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{series: quietSeries()}, Options{})

	ev := o.Run(context.Background(), "AAPL", model.DefaultThresholds(), true)
	assert.Equal(t, narration.NoKeyMessage, ev.Comment)
}

func TestRunSurvivesCollaboratorFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	notifier := &fakeNotifier{err: errors.New("chat not found")}
	o := newTestOrchestrator(&fakeFetcher{series: spikeSeries()}, Options{
		Store:    store,
		Notifier: notifier,
	})

	ev := o.Run(context.Background(), "AAPL", model.DefaultThresholds(), false)
	assert.True(t, ev.Record.Alert)
	assert.Len(t, notifier.comments, 1)
}

func TestRunDisabledStore(t *testing.T) {
	var db *database.DB
	o := newTestOrchestrator(&fakeFetcher{series: spikeSeries()}, Options{Store: db})

	assert.NotPanics(t, func() {
		o.Run(context.Background(), "AAPL", model.DefaultThresholds(), false)
	})
}

func TestTrend(t *testing.T) {
	history := &fakeFetcher{series: dailySeries(40)}
	o := newTestOrchestrator(&fakeFetcher{}, Options{History: history})

	trend := o.Trend(context.Background(), "AAPL")

	assert.Equal(t, 40, trend.Bars)
	assert.Equal(t, []model.WindowSpec{model.HistoryWindow()}, history.specs)

	w30, ok := trend.Window("30d")
	require.True(t, ok)
	require.NotNil(t, w30.CloseSlope)
	assert.InDelta(t, 1.0, *w30.CloseSlope, 1e-9)

	w90, ok := trend.Window("90d")
	require.True(t, ok)
	assert.False(t, w90.Available())
}

func TestTrendNoHistory(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{}, Options{History: &fakeFetcher{err: fetcher.ErrNoData}})

	trend := o.Trend(context.Background(), "AAPL")
	assert.Equal(t, 0, trend.Bars)
	assert.Nil(t, trend.Stats.MeanDeltaOC)
}

func TestDecide(t *testing.T) {
	completer := &fakeCompleter{reply: `{"action":"HOLD","confidence":0.5,"rationale":"mixed"}`}
	store := &fakeStore{}
	o := newTestOrchestrator(&fakeFetcher{series: spikeSeries()}, Options{
		History:  &fakeFetcher{series: dailySeries(10)},
		News:     fakeNews{text: "- Apple unveils new chip"},
		Narrator: narration.NewService(completer, 100, 400),
		Store:    store,
	})

	d := o.Decide(context.Background(), "AAPL", model.DefaultThresholds(), true)

	assert.Equal(t, completer.reply, d.Decision)
	assert.Equal(t, "- Apple unveils new chip", d.News)
	assert.True(t, d.Record.Alert)
	assert.Equal(t, 10, d.Trend.Bars)
	require.Len(t, completer.users, 1)
	assert.Contains(t, completer.users[0], "Apple unveils new chip")
	assert.Empty(t, store.records)
}

func TestDecideNewsFailure(t *testing.T) {
	completer := &fakeCompleter{reply: "{}"}
	o := newTestOrchestrator(&fakeFetcher{series: quietSeries()}, Options{
		News:     fakeNews{err: errors.New("403")},
		Narrator: narration.NewService(completer, 100, 400),
	})

	d := o.Decide(context.Background(), "AAPL", model.DefaultThresholds(), true)
	assert.Empty(t, d.News)
	assert.Equal(t, "{}", d.Decision)
}

func TestNewDefaults(t *testing.T) {
	o := New(Options{Intraday: &fakeFetcher{}})
	assert.Equal(t, model.DefaultThresholds(), o.Defaults())
	assert.Equal(t, model.IntradayWindow(), o.intradayWindow)
	assert.Equal(t, model.HistoryWindow(), o.historyWindow)
}
