package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	httpClient "github.com/Alias1177/PriceWatch/internal/platform/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrIncomplete is returned when a quote lacks the current price
	ErrIncomplete = errors.New("finnhub: incomplete quote")
	// ErrNoCandles is returned when the candle endpoint reports no data
	ErrNoCandles = errors.New("finnhub: no candles")
	// ErrNoAPIKey is returned before any request when the token is missing
	ErrNoAPIKey = errors.New("finnhub: api key not configured")
)

// Client is the Finnhub REST API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Finnhub client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
	Now             func() time.Time
}

// NewClient creates a new Finnhub client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = "https://finnhub.io/api/v1"
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: options.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Name:            "finnhub_http",
		}),
		now:    options.Now,
		logger: log.With().Str("component", "finnhub_client").Logger(),
	}
}

// Name identifies the source in logs and metrics
func (c *Client) Name() string { return "finnhub" }

type quoteResponse struct {
	Current   *float64 `json:"c"`
	Open      float64  `json:"o"`
	High      float64  `json:"h"`
	Low       float64  `json:"l"`
	PrevClose float64  `json:"pc"`
	Timestamp int64    `json:"t"`
}

type candleResponse struct {
	Close  []float64 `json:"c"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Open   []float64 `json:"o"`
	Time   []int64   `json:"t"`
	Volume []float64 `json:"v"`
	Status string    `json:"s"`
}

// Candles returns a single-bar series built from the latest quote for
// intraday windows, and daily candles for daily windows
func (c *Client) Candles(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if spec.Daily() {
		return c.dailyCandles(ctx, ticker, spec)
	}
	return c.quote(ctx, ticker)
}

func (c *Client) quote(ctx context.Context, ticker string) (model.Series, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.baseURL, url.QueryEscape(ticker), c.apiKey)

	c.logger.Debug().Str("ticker", ticker).Msg("Fetching quote")

	var q quoteResponse
	if err := c.httpClient.GetJSON(ctx, u, &q); err != nil {
		return nil, err
	}
	// Unknown symbols come back as all zeros
	if q.Current == nil || (*q.Current == 0 && q.Timestamp == 0) {
		return nil, ErrIncomplete
	}

	ts := c.now().UTC()
	if q.Timestamp > 0 {
		ts = time.Unix(q.Timestamp, 0).UTC()
	}

	return model.Series{{
		Time:  ts,
		Open:  q.Open,
		High:  q.High,
		Low:   q.Low,
		Close: *q.Current,
	}}, nil
}

func (c *Client) dailyCandles(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error) {
	lookback, err := spec.Lookback()
	if err != nil {
		return nil, err
	}
	to := c.now()
	from := to.Add(-lookback)

	u := fmt.Sprintf("%s/stock/candle?symbol=%s&resolution=D&from=%d&to=%d&token=%s",
		c.baseURL, url.QueryEscape(ticker), from.Unix(), to.Unix(), c.apiKey)

	c.logger.Debug().Str("ticker", ticker).Stringer("window", spec).Msg("Fetching daily candles")

	var data candleResponse
	if err := c.httpClient.GetJSON(ctx, u, &data); err != nil {
		return nil, err
	}
	if data.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", ErrNoCandles, data.Status)
	}

	n := len(data.Time)
	if len(data.Open) < n || len(data.High) < n || len(data.Low) < n || len(data.Close) < n {
		return nil, fmt.Errorf("finnhub: ragged candle arrays for %s", ticker)
	}

	series := make(model.Series, 0, n)
	for i := 0; i < n; i++ {
		bar := model.Bar{
			Time:  time.Unix(data.Time[i], 0).UTC(),
			Open:  data.Open[i],
			High:  data.High[i],
			Low:   data.Low[i],
			Close: data.Close[i],
		}
		if i < len(data.Volume) {
			bar.Volume = int64(data.Volume[i])
		}
		series = append(series, bar)
	}

	c.logger.Debug().Int("count", len(series)).Str("ticker", ticker).Msg("Fetched candles")
	return series, nil
}
