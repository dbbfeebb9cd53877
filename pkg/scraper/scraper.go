package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 5 * time.Second
	defaultTimeout     = 30 * time.Second
)

func NewScraper(cfg Config, logger *zap.Logger) *Scraper {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = DefaultAcceptLanguage
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scraper{
		colly: colly.NewCollector(
			colly.UserAgent(cfg.UserAgent),
			colly.AllowURLRevisit(),
			colly.ParseHTTPErrorResponse(),
		),
		extractor:      NewExtractor(cfg.Selectors),
		maxAttempts:    cfg.MaxAttempts,
		backoff:        cfg.Backoff,
		acceptLanguage: cfg.AcceptLanguage,
		logger:         logger,
	}

	// product pages are fetched one at a time and a stale session only invites captchas
	s.colly.DisableCookies()
	s.colly.SetRequestTimeout(cfg.Timeout)

	return s
}

// WithTransport replaces the HTTP transport used for every request.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.colly.WithTransport(rt)
}

// Fetch retrieves the markup of url. Network errors and non-2xx responses are
// retried after a fixed backoff until the attempt budget is spent.
func (s *Scraper) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{URL: url, Attempts: attempt - 1, Err: err}
		}

		body, err := s.fetchOnce(url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == s.maxAttempts {
			break
		}
		s.logger.Warn("request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Duration("backoff", s.backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{URL: url, Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return nil, &FetchError{URL: url, Attempts: s.maxAttempts, Err: lastErr}
}

func (s *Scraper) fetchOnce(url string) ([]byte, error) {
	// a clone shares the transport but not the callbacks, so concurrent fetches
	// never see each other's bodies
	c := s.colly.Clone()

	// colly is built with ParseHTTPErrorResponse, so every status reaches
	// OnResponse and only 2xx counts as success
	var body []byte
	status := 0
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", s.acceptLanguage)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("status %d: %s", status, http.StatusText(status))
	}
	if body == nil {
		return nil, fmt.Errorf("empty response for %q", url)
	}
	return body, nil
}

// ReadPrice fetches url and extracts its current price.
func (s *Scraper) ReadPrice(ctx context.Context, url string) PriceReading {
	markup, err := s.Fetch(ctx, url)
	if err != nil {
		return PriceReading{URL: url, Err: &UnavailableError{Reason: ReasonNetwork, Err: err}}
	}
	price, err := s.extractor.Price(markup)
	if err != nil {
		return PriceReading{URL: url, Err: err}
	}
	return PriceReading{URL: url, Price: price}
}

// ReadName fetches url and extracts the product title. Any failure degrades to
// UnknownProductName.
func (s *Scraper) ReadName(ctx context.Context, url string) string {
	markup, err := s.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("could not fetch product name", zap.String("url", url), zap.Error(err))
		return UnknownProductName
	}
	return s.extractor.Name(markup)
}
