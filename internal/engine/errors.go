package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/pricely/internal/metrics"
)

// Failure kinds of a single check. Wrapped errors returned by the engine
// match one of these with errors.Is.
var (
	ErrAdapter     = errors.New("no adapter for product url")
	ErrFetch       = errors.New("fetching snapshot")
	ErrValidation  = errors.New("invalid snapshot")
	ErrPersistence = errors.New("persisting check")
	ErrDelivery    = errors.New("delivering notification")

	// ErrTrackerGone means the tracker was deleted or deactivated before
	// the check could record anything.
	ErrTrackerGone = errors.New("tracker no longer exists")

	// ErrStopping is returned by CheckNowResult once Stop has been called.
	ErrStopping = errors.New("engine is stopping")

	// errAbandoned marks a run that never got a worker slot.
	errAbandoned = errors.New("check abandoned before start")
)

// CheckResult is the outcome of one tracker check.
type CheckResult struct {
	TrackerID string           `json:"tracker_id"`
	Outcome   string           `json:"outcome"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Notified  bool             `json:"notified"`
	CheckedAt time.Time        `json:"checked_at,omitzero"`
}

// Success reports whether the fetch and persist steps completed.
func (r CheckResult) Success() bool {
	return r.Outcome == metrics.OutcomeSuccess
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrTrackerGone):
		return metrics.OutcomeGone
	case errors.Is(err, errAbandoned):
		return metrics.OutcomeAbandoned
	case errors.Is(err, ErrAdapter):
		return metrics.OutcomeAdapter
	case errors.Is(err, ErrFetch):
		return metrics.OutcomeFetch
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomePersistence
	}
}
