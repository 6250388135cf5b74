package twelvedata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/Alias1177/PriceWatch/internal/model"
	httpClient "github.com/Alias1177/PriceWatch/internal/platform/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNoAPIKey is returned before any request when the key is missing
var ErrNoAPIKey = errors.New("twelvedata: api key not configured")

// maxOutputSize is the largest page the time_series endpoint serves
const maxOutputSize = 5000

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = "https://api.twelvedata.com"
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: options.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Name:            "twelvedata_http",
		}),
		logger: log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// Name identifies the source in logs and metrics
func (c *Client) Name() string { return "twelvedata" }

// timeSeriesResponse represents the API response from Twelve Data
type timeSeriesResponse struct {
	Meta struct {
		Symbol           string `json:"symbol"`
		Interval         string `json:"interval"`
		ExchangeTimezone string `json:"exchange_timezone"`
	} `json:"meta"`
	Values []struct {
		Datetime string  `json:"datetime"`
		Open     float64 `json:"open,string"`
		High     float64 `json:"high,string"`
		Low      float64 `json:"low,string"`
		Close    float64 `json:"close,string"`
		Volume   int64   `json:"volume,string,omitempty"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Candles fetches candle data from Twelve Data API
func (c *Client) Candles(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	interval, err := intervalName(spec.Interval)
	if err != nil {
		return nil, err
	}
	count, err := outputSize(spec)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf(
		"%s/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		c.baseURL,
		url.QueryEscape(ticker),
		interval,
		count,
		c.apiKey,
	)

	c.logger.Debug().Str("ticker", ticker).Str("interval", interval).Int("outputsize", count).Msg("Fetching candles")

	var data timeSeriesResponse
	if err := c.httpClient.GetJSON(ctx, u, &data); err != nil {
		return nil, err
	}

	if data.Status == "error" {
		c.logger.Error().Int("code", data.Code).Str("message", data.Message).Msg("Twelve Data API error")
		return nil, fmt.Errorf("Twelve Data API error %d: %s", data.Code, data.Message)
	}

	if len(data.Values) == 0 {
		return nil, fmt.Errorf("empty data returned")
	}

	loc := time.UTC
	if data.Meta.ExchangeTimezone != "" {
		if l, err := time.LoadLocation(data.Meta.ExchangeTimezone); err == nil {
			loc = l
		}
	}

	series := make(model.Series, 0, len(data.Values))
	for _, v := range data.Values {
		ts, err := parseDatetime(v.Datetime, loc)
		if err != nil {
			c.logger.Warn().Err(err).Str("datetime", v.Datetime).Msg("Skipping candle")
			continue
		}
		series = append(series, model.Bar{
			Time:   ts,
			Open:   v.Open,
			High:   v.High,
			Low:    v.Low,
			Close:  v.Close,
			Volume: v.Volume,
		})
	}

	// Sort candles by time (the API returns newest first)
	sort.Slice(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})

	c.logger.Debug().Int("count", len(series)).Msg("Fetched candles")
	return series, nil
}

func parseDatetime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

// intervalName maps window intervals onto Twelve Data interval names
func intervalName(interval string) (string, error) {
	switch interval {
	case "1m":
		return "1min", nil
	case "5m":
		return "5min", nil
	case "15m":
		return "15min", nil
	case "30m":
		return "30min", nil
	case "1h":
		return "1h", nil
	case "1d":
		return "1day", nil
	case "1wk":
		return "1week", nil
	}
	return "", fmt.Errorf("twelvedata: unsupported interval %q", interval)
}

// outputSize estimates how many candles cover the window's period.
// Intraday windows assume a 6.5 hour session, daily windows 252 sessions a year.
func outputSize(spec model.WindowSpec) (int, error) {
	lookback, err := spec.Lookback()
	if err != nil {
		return 0, err
	}
	step, err := spec.Step()
	if err != nil {
		return 0, err
	}

	days := lookback.Hours() / 24
	var count float64
	switch {
	case step < 24*time.Hour:
		sessionMinutes := 6.5 * 60
		count = days * sessionMinutes / step.Minutes()
	case step == 24*time.Hour:
		count = days * 252 / 365
	default:
		count = lookback.Hours() / step.Hours()
	}

	// Add a buffer
	n := int(count*1.1) + 1
	if n > maxOutputSize {
		n = maxOutputSize
	}
	return n, nil
}
