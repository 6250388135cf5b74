package yahoo

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

// ErrEmpty is returned when the chart endpoint answers without usable bars
var ErrEmpty = errors.New("yahoo: empty chart")

// Client is the Yahoo Finance chart API client
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Yahoo client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Yahoo chart client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = "https://query1.finance.yahoo.com"
	}

	return &Client{
		baseURL: options.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Name:            "yahoo_http",
		}),
		logger: log.With().Str("component", "yahoo_client").Logger(),
	}
}

// Name identifies the source in logs and metrics
func (c *Client) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Candles fetches OHLC bars for the given window
func (c *Client) Candles(ctx context.Context, ticker string, spec model.WindowSpec) (model.Series, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		c.baseURL,
		url.PathEscape(ticker),
		url.QueryEscape(spec.Period),
		url.QueryEscape(spec.Interval),
	)

	c.logger.Debug().Str("ticker", ticker).Stringer("window", spec).Msg("Fetching chart")

	var data chartResponse
	if err := c.httpClient.GetJSON(ctx, u, &data); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error %s: %s", data.Chart.Error.Code, data.Chart.Error.Description)
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrEmpty
	}

	series := toSeries(data)
	if len(series) == 0 {
		return nil, ErrEmpty
	}

	c.logger.Debug().Int("count", len(series)).Str("ticker", ticker).Msg("Fetched bars")
	return series, nil
}

// toSeries drops rows with any null price field
func toSeries(data chartResponse) model.Series {
	result := data.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	at := func(col []*float64, i int) (float64, bool) {
		if i >= len(col) || col[i] == nil {
			return 0, false
		}
		return *col[i], true
	}

	series := make(model.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		cl, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}

		bar := model.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  o,
			High:  h,
			Low:   l,
			Close: cl,
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		series = append(series, bar)
	}

	// Sort by time ascending; equal timestamps keep upstream order
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series
}
