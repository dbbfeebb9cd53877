package checker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/geniass/price-tracker/pkg/model"
	"github.com/geniass/price-tracker/pkg/notify"
	"github.com/geniass/price-tracker/pkg/scraper"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PriceReader reads prices and names from product pages.
type PriceReader interface {
	ReadPrice(ctx context.Context, url string) scraper.PriceReading
	ReadName(ctx context.Context, url string) string
}

type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// NameCache stores display names once they have been looked up.
type NameCache interface {
	SetName(url, name string)
}

type Checker struct {
	reader   PriceReader
	notifier Notifier
	names    NameCache
	workers  int
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Checker)

// WithWorkers sets how many products are checked at once. One (the default)
// checks them strictly in order.
func WithWorkers(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithNameCache(names NameCache) Option {
	return func(c *Checker) { c.names = names }
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

func New(reader PriceReader, notifier Notifier, logger *zap.Logger, opts ...Option) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{
		reader:   reader,
		notifier: notifier,
		workers:  1,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Qualifies is the notification predicate: a price at or below target.
func Qualifies(price, target decimal.Decimal) bool {
	return price.LessThanOrEqual(target)
}

type cycle struct {
	id  string
	out chan<- model.Event
	now func() time.Time

	checked atomic.Int32
	alerts  atomic.Int32
	skipped atomic.Int32
}

func (cy *cycle) emit(sev model.Severity, kind model.Kind, url, format string, args ...interface{}) {
	cy.out <- model.Event{
		CycleID:  cy.id,
		Time:     cy.now(),
		Severity: sev,
		Kind:     kind,
		URL:      url,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Run checks every product and returns the events of the cycle. The channel
// is closed once all products were handled; it must be drained. Failures of
// single products are reported as events and never stop the cycle.
func (c *Checker) Run(ctx context.Context, products []model.Product) <-chan model.Event {
	out := make(chan model.Event, 16)
	cy := &cycle{id: uuid.NewString(), out: out, now: c.now}

	go func() {
		defer close(out)

		cy.emit(model.SeverityInfo, model.KindCycleStarted, "", "checking %d products", len(products))

		if c.workers <= 1 {
			for _, p := range products {
				c.check(ctx, cy, p)
			}
		} else {
			var g errgroup.Group
			g.SetLimit(c.workers)
			for _, p := range products {
				p := p
				g.Go(func() error {
					c.check(ctx, cy, p)
					return nil
				})
			}
			_ = g.Wait()
		}

		cy.emit(model.SeverityInfo, model.KindCycleFinished, "",
			"cycle finished: %d checked, %d alerts, %d skipped",
			cy.checked.Load(), cy.alerts.Load(), cy.skipped.Load())
	}()

	return out
}

func (c *Checker) check(ctx context.Context, cy *cycle, p model.Product) {
	cy.emit(model.SeverityInfo, model.KindChecking, p.URL, "checking price for %s", p.URL)

	reading := c.reader.ReadPrice(ctx, p.URL)
	if !reading.Available() {
		cy.skipped.Add(1)
		cy.emit(model.SeverityError, model.KindUnavailable, p.URL, "could not retrieve price for %s: %v", p.URL, reading.Err)
		return
	}
	cy.checked.Add(1)

	name := p.Name
	if name == "" {
		name = c.reader.ReadName(ctx, p.URL)
		if name != "" && name != scraper.UnknownProductName && c.names != nil {
			c.names.SetName(p.URL, name)
		}
		if name == "" {
			name = scraper.UnknownProductName
		}
	}

	cy.emit(model.SeverityInfo, model.KindPrice, p.URL, "%s: current price $%s | target price $%s",
		name, reading.Price.StringFixed(2), p.TargetPrice.StringFixed(2))

	if !Qualifies(reading.Price, p.TargetPrice) {
		cy.emit(model.SeverityInfo, model.KindNoDrop, p.URL, "no price drop for %s", name)
		return
	}

	subject, body, err := notify.AlertMessage(name, reading.Price, p.TargetPrice, p.URL)
	if err == nil {
		err = c.notifier.Notify(ctx, subject, body)
	}
	if err != nil {
		c.logger.Warn("alert not delivered", zap.String("url", p.URL), zap.Error(err))
		cy.emit(model.SeverityError, model.KindAlertFailed, p.URL, "failed to send alert for %s: %v", name, err)
		return
	}
	cy.alerts.Add(1)
	cy.emit(model.SeveritySuccess, model.KindAlertSent, p.URL, "alert sent: %s", subject)
}
