package main

import (
	"github.com/geniass/price-tracker/pkg/checker"
	"github.com/geniass/price-tracker/pkg/config"
	"github.com/geniass/price-tracker/pkg/notify"
	"github.com/geniass/price-tracker/pkg/scraper"
	"github.com/geniass/price-tracker/pkg/store"
	"github.com/geniass/price-tracker/pkg/tracker"
	"go.uber.org/zap"
)

// newStoreTracker is enough for the list/add/remove/edit commands, which never
// fetch pages or send mail.
func newStoreTracker(cfg config.Config, log *zap.Logger) (*tracker.Tracker, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	return tracker.New(st, nil, nil, log), nil
}

func newTracker(cfg config.Config, log *zap.Logger) (*tracker.Tracker, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	s := scraper.NewScraper(scraper.Config{
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		Backoff:        cfg.Fetch.Backoff,
		Timeout:        cfg.Fetch.Timeout,
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Selectors: scraper.Selectors{
			Whole:    cfg.Selectors.Whole,
			Fraction: cfg.Selectors.Fraction,
			Title:    cfg.Selectors.Title,
		},
	}, log.Named("scraper"))

	n, err := notify.NewSMTPNotifier(notify.Config{
		SenderAddress: cfg.SMTP.SenderAddress,
		Credential:    cfg.SMTP.Credential,
		RelayHost:     cfg.SMTP.RelayHost,
		RelayPort:     cfg.SMTP.RelayPort,
		Recipient:     cfg.SMTP.Recipient,
	}, log.Named("notify"))
	if err != nil {
		return nil, err
	}

	ch := checker.New(s, n, log.Named("checker"),
		checker.WithWorkers(cfg.Check.Workers),
		checker.WithNameCache(st),
	)
	return tracker.New(st, ch, nil, log), nil
}
