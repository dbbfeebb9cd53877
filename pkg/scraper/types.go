package scraper

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const UnknownProductName = "Unknown Product"

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/124.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
)

type Scraper struct {
	colly *colly.Collector

	extractor      Extractor
	maxAttempts    int
	backoff        time.Duration
	acceptLanguage string
	logger         *zap.Logger
}

// Config controls fetching. Zero values fall back to the defaults.
type Config struct {
	MaxAttempts    int
	Backoff        time.Duration
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	Selectors      Selectors
}

// Selectors are the page markers the extractor looks for.
type Selectors struct {
	Whole    string
	Fraction string
	Title    string
}

var DefaultSelectors = Selectors{
	Whole:    "span.a-price-whole",
	Fraction: "span.a-price-fraction",
	Title:    "#productTitle",
}

// Reason says why no price could be read.
type Reason string

const (
	ReasonNetwork  Reason = "network-failure"
	ReasonNotFound Reason = "markup-not-found"
	ReasonParse    Reason = "parse-failure"
)

var ErrUnavailable = errors.New("price unavailable")

type UnavailableError struct {
	Reason Reason
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("price unavailable: %s", e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// FetchError is returned once every attempt to retrieve a page failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %q failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PriceReading is the outcome of one attempt to read a product's price.
type PriceReading struct {
	URL   string
	Price decimal.Decimal
	// Err is an *UnavailableError when no price could be read.
	Err error
}

func (r PriceReading) Available() bool { return r.Err == nil }
