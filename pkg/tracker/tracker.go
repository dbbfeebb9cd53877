package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/geniass/price-tracker/pkg/checker"
	"github.com/geniass/price-tracker/pkg/model"
	"github.com/geniass/price-tracker/pkg/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cycleKey = "cycle"

// Summary describes one finished check cycle.
type Summary struct {
	CycleID string
	Checked int
	Alerts  int
	Skipped int
	Failed  int
	// Shared is set when the caller joined a cycle that was already running.
	Shared bool
}

// Tracker is the core of the application. Interfaces (CLI, web) talk to it and
// never to the store or checker directly.
type Tracker struct {
	store   *store.Store
	checker *checker.Checker
	hub     *Hub
	logger  *zap.Logger

	cycles singleflight.Group
}

func New(st *store.Store, ch *checker.Checker, hub *Hub, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Tracker{store: st, checker: ch, hub: hub, logger: logger}
}

func (t *Tracker) Add(url string, target decimal.Decimal) error {
	if err := t.store.Add(url, target); err != nil {
		return err
	}
	t.logger.Info("product added", zap.String("url", url), zap.String("target_price", target.StringFixed(2)))
	return nil
}

func (t *Tracker) Remove(url string) (bool, error) {
	removed, err := t.store.Remove(url)
	if err != nil {
		return false, err
	}
	if removed {
		t.logger.Info("product removed", zap.String("url", url))
	}
	return removed, nil
}

func (t *Tracker) Edit(oldURL, newURL string, target decimal.Decimal) error {
	if err := t.store.Edit(oldURL, newURL, target); err != nil {
		return err
	}
	t.logger.Info("product edited",
		zap.String("old_url", oldURL),
		zap.String("url", newURL),
		zap.String("target_price", target.StringFixed(2)),
	)
	return nil
}

func (t *Tracker) List() ([]model.Product, error) {
	return t.store.List()
}

func (t *Tracker) Subscribe() (<-chan model.Event, func()) {
	return t.hub.Subscribe()
}

func (t *Tracker) Recent(n int) []model.Event {
	return t.hub.Recent(n)
}

// RunCycle checks every tracked product once. A call made while another cycle
// is running waits for that cycle and shares its summary instead of starting
// a second one, so one price drop never produces two alerts.
func (t *Tracker) RunCycle(ctx context.Context) (Summary, error) {
	v, err, shared := t.cycles.Do(cycleKey, func() (interface{}, error) {
		return t.runCycle(ctx)
	})
	if err != nil {
		return Summary{}, err
	}
	s := v.(Summary)
	s.Shared = shared
	return s, nil
}

// RunCycleAsync starts a cycle in the background and returns immediately.
func (t *Tracker) RunCycleAsync() {
	go func() {
		if _, err := t.RunCycle(context.Background()); err != nil {
			t.logger.Error("manual check cycle failed", zap.Error(err))
		}
	}()
}

func (t *Tracker) runCycle(ctx context.Context) (Summary, error) {
	products, err := t.store.List()
	if err != nil {
		e := model.Event{
			CycleID:  uuid.NewString(),
			Time:     time.Now(),
			Severity: model.SeverityError,
			Kind:     model.KindStoreError,
			Message:  fmt.Sprintf("could not read tracked products: %v", err),
		}
		t.hub.Publish(e)
		return Summary{}, fmt.Errorf("reading tracked products: %w", err)
	}

	var s Summary
	for e := range t.checker.Run(ctx, products) {
		s.CycleID = e.CycleID
		switch e.Kind {
		case model.KindPrice:
			s.Checked++
		case model.KindUnavailable:
			s.Skipped++
		case model.KindAlertSent:
			s.Alerts++
		case model.KindAlertFailed:
			s.Failed++
		}
		t.hub.Publish(e)
	}
	return s, nil
}
