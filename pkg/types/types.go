// Package domain defines the core business types for pricely.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a source does not report a currency.
const DefaultCurrency = "USD"

// User owns trackers and receives notifications.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Username  string    `json:"username"   db:"username"`
	Email     string    `json:"email"      db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Product is an external catalog item identified by its canonical URL.
// URL is unique across all products.
type Product struct {
	ID          string    `json:"id"                    db:"id"`
	URL         string    `json:"url"                   db:"url"`
	Website     string    `json:"website"               db:"website"`
	ExternalID  string    `json:"external_id,omitempty" db:"external_id"`
	Name        string    `json:"name"                  db:"name"`
	ImageURL    string    `json:"image_url,omitempty"   db:"image_url"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at"            db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"            db:"updated_at"`
}

// PriceObservation is one recorded price reading for a product.
// Observations are append-only.
type PriceObservation struct {
	ID         string          `json:"id"          db:"id"`
	ProductID  string          `json:"product_id"  db:"product_id"`
	Price      decimal.Decimal `json:"price"       db:"price"`
	Currency   string          `json:"currency"    db:"currency"`
	Available  bool            `json:"available"   db:"available"`
	ObservedAt time.Time       `json:"observed_at" db:"observed_at"`
}

// Tracker is a user's subscription to a product with a target price.
type Tracker struct {
	ID            string          `json:"id"             db:"id"`
	UserID        string          `json:"user_id"        db:"user_id"`
	ProductID     string          `json:"product_id"     db:"product_id"`
	TargetPrice   decimal.Decimal `json:"target_price"   db:"target_price"`
	Active        bool            `json:"active"         db:"active"`
	CheckInterval time.Duration   `json:"check_interval" db:"check_interval"`

	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
	LastError     string     `json:"last_error,omitempty"      db:"last_error"`

	// LastNotifiedPrice is set when a notification fires and cleared when the
	// price rises back above target. A nil value means the tracker is armed.
	LastNotifiedPrice *decimal.Decimal `json:"last_notified_price,omitempty" db:"last_notified_price"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Armed reports whether the tracker will notify on its next at-or-below
// target observation.
func (t *Tracker) Armed() bool {
	return t.LastNotifiedPrice == nil
}

// NextDue returns when the tracker should next be checked, ignoring jitter.
// A tracker that has never been checked is due immediately.
func (t *Tracker) NextDue(now time.Time) time.Time {
	if t.LastCheckedAt == nil {
		return now
	}
	return t.LastCheckedAt.Add(t.CheckInterval)
}

// Notification is a user-facing record that a tracker crossed its target.
type Notification struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	TrackerID string    `json:"tracker_id" db:"tracker_id"`
	Message   string    `json:"message"    db:"message"`
	Read      bool      `json:"read"       db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TrackerDetail is a tracker joined with its product and latest observation.
type TrackerDetail struct {
	Tracker
	Product Product           `json:"product"`
	Latest  *PriceObservation `json:"latest,omitempty"`
}
