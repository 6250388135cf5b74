package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNoHeadlines is returned when the page had nothing matching the selector
var ErrNoHeadlines = errors.New("no headlines found")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper pulls recent headlines for a ticker from a quote page
type Scraper struct {
	urlTemplate  string
	selector     string
	maxHeadlines int
	timeout      time.Duration
	logger       zerolog.Logger
}

// Options configures a Scraper. URLTemplate must contain "{ticker}".
type Options struct {
	URLTemplate  string
	Selector     string
	MaxHeadlines int
	Timeout      time.Duration
}

// NewScraper creates a new headline scraper
func NewScraper(opts Options) *Scraper {
	if opts.MaxHeadlines <= 0 {
		opts.MaxHeadlines = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Scraper{
		urlTemplate:  opts.URLTemplate,
		selector:     opts.Selector,
		maxHeadlines: opts.MaxHeadlines,
		timeout:      opts.Timeout,
		logger:       log.With().Str("component", "news_scraper").Logger(),
	}
}

// Headlines returns up to maxHeadlines headlines as a "- " bullet list
func (s *Scraper) Headlines(ctx context.Context, ticker string) (string, error) {
	pageURL := strings.ReplaceAll(s.urlTemplate, "{ticker}", url.QueryEscape(strings.ToUpper(ticker)))

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(pageURL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	var (
		headlines []string
		scrapeErr error
	)
	seen := make(map[string]bool)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		e.DOM.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			title := strings.Join(strings.Fields(sel.Text()), " ")
			if title == "" || seen[title] {
				return true
			}
			seen[title] = true
			headlines = append(headlines, title)
			return len(headlines) < s.maxHeadlines
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil && scrapeErr == nil {
		scrapeErr = fmt.Errorf("visit %s: %w", pageURL, err)
	}
	c.Wait()

	if scrapeErr != nil {
		s.logger.Warn().Err(scrapeErr).Str("ticker", ticker).Msg("News scraping failed")
		return "", scrapeErr
	}
	if len(headlines) == 0 {
		s.logger.Debug().Str("ticker", ticker).Msg("No headlines matched")
		return "", ErrNoHeadlines
	}

	s.logger.Debug().Str("ticker", ticker).Int("headlines", len(headlines)).Msg("Scraped headlines")
	return "- " + strings.Join(headlines, "\n- "), nil
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
