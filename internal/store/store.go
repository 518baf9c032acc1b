// Package store defines the datastore abstraction for pricely.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// Sentinel errors shared by every backend.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

const defaultHistoryLimit = 30

// Store defines all data access operations for pricely.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// Products
	GetOrCreateProduct(ctx context.Context, p *domain.Product) (bool, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByURL(ctx context.Context, url string) (*domain.Product, error)
	UpdateProductDetails(ctx context.Context, p *domain.Product) error

	// Observations
	AppendObservation(ctx context.Context, o *domain.PriceObservation) error
	LatestObservation(ctx context.Context, productID string) (*domain.PriceObservation, error)
	ListObservations(ctx context.Context, productID string, limit int) ([]domain.PriceObservation, error)

	// Trackers
	CreateTracker(ctx context.Context, t *domain.Tracker) error
	GetTracker(ctx context.Context, id string) (*domain.Tracker, error)
	ListTrackers(ctx context.Context, activeOnly bool) ([]domain.Tracker, error)
	ListTrackersByUser(ctx context.Context, userID string) ([]domain.Tracker, error)
	UpdateTracker(ctx context.Context, t *domain.Tracker) error
	DeleteTracker(ctx context.Context, id string) error
	RecordTrackerCheck(ctx context.Context, id string, checkedAt time.Time, checkErr string) error

	// Crossing state. ClaimCrossing atomically marks an armed tracker as
	// notified at price and inserts n; it reports false without writing
	// anything when the tracker is already disarmed. RearmTracker clears
	// the notified price.
	ClaimCrossing(ctx context.Context, n *domain.Notification, price decimal.Decimal) (bool, error)
	RearmTracker(ctx context.Context, id string) error

	// Notifications
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}
