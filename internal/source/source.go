// Package source abstracts the external catalogs pricely reads prices from.
// Every URL is classified by an Adapter; the Registry picks the first
// adapter that claims it.
package source

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedSource is returned when no adapter claims a URL.
var ErrUnsupportedSource = errors.New("unsupported source")

// ErrNoPrice is returned when a fetched page carries no readable price.
var ErrNoPrice = errors.New("price not found")

// Snapshot is the normalized result of one fetch.
type Snapshot struct {
	Name        string
	Price       decimal.Decimal
	Currency    string // ISO 4217; may be empty when the source does not say
	Available   bool
	ExternalID  string
	ImageURL    string
	Description string
}

// Adapter reads product snapshots from one kind of source.
//
// Supports must be a pure function of the URL and never perform I/O.
// Fetch must be safe for concurrent use, must honor ctx cancellation, and
// applies its own politeness rate limiting.
type Adapter interface {
	Name() string
	Supports(rawURL string) bool
	Fetch(ctx context.Context, rawURL string) (*Snapshot, error)
}
