package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one tracked product page.
type Product struct {
	URL         string          `json:"url"`
	TargetPrice decimal.Decimal `json:"target_price"`
	// Name is a cached display name. It is filled lazily and may be stale.
	Name string `json:"name,omitempty"`
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Kind says which step of a cycle produced an event.
type Kind string

const (
	KindCycleStarted  Kind = "cycle_started"
	KindCycleFinished Kind = "cycle_finished"
	KindChecking      Kind = "checking"
	KindUnavailable   Kind = "unavailable"
	KindPrice         Kind = "price"
	KindNoDrop        Kind = "no_drop"
	KindAlertSent     Kind = "alert_sent"
	KindAlertFailed   Kind = "alert_failed"
	KindStoreError    Kind = "store_error"
)

// Event is a status record emitted while a check cycle runs.
type Event struct {
	CycleID  string    `json:"cycle_id"`
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Kind     Kind      `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Message  string    `json:"message"`
}
