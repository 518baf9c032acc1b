package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store in process memory. It backs the "memory"
// database driver and the engine tests. Values are copied in and out so
// callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	users         map[string]domain.User
	products      map[string]domain.Product
	productsByURL map[string]string
	observations  map[string][]domain.PriceObservation // by product, oldest first
	trackers      map[string]domain.Tracker
	notifications map[string]domain.Notification

	nowFunc func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryNowFunc overrides the clock used for created/updated stamps.
func WithMemoryNowFunc(f func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.nowFunc = f
	}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		users:         make(map[string]domain.User),
		products:      make(map[string]domain.Product),
		productsByURL: make(map[string]string),
		observations:  make(map[string][]domain.PriceObservation),
		trackers:      make(map[string]domain.Tracker),
		notifications: make(map[string]domain.Notification),
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Migrate is a no-op.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// CreateUser inserts a user. Username and email are unique.
func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("creating user: %w", ErrConflict)
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.nowFunc()
	s.users[u.ID] = *u
	return nil
}

// GetUser returns a user by ID.
func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

// GetOrCreateProduct returns the product with p.URL, inserting p if none
// exists. p is overwritten with the stored row. The bool reports creation.
func (s *MemoryStore) GetOrCreateProduct(_ context.Context, p *domain.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.productsByURL[p.URL]; ok {
		*p = s.products[id]
		return false, nil
	}

	now := s.nowFunc()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = *p
	s.productsByURL[p.URL] = p.ID
	return true, nil
}

// GetProduct returns a product by ID.
func (s *MemoryStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// GetProductByURL returns a product by its canonical URL.
func (s *MemoryStore) GetProductByURL(_ context.Context, url string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productsByURL[url]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", url, ErrNotFound)
	}
	p := s.products[id]
	return &p, nil
}

// UpdateProductDetails replaces the display fields of a product.
func (s *MemoryStore) UpdateProductDetails(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	existing.Name = p.Name
	existing.ImageURL = p.ImageURL
	existing.Description = p.Description
	existing.ExternalID = p.ExternalID
	existing.UpdatedAt = s.nowFunc()
	s.products[p.ID] = existing
	*p = existing
	return nil
}

// AppendObservation records a price observation.
func (s *MemoryStore) AppendObservation(_ context.Context, o *domain.PriceObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[o.ProductID]; !ok {
		return fmt.Errorf("product %s: %w", o.ProductID, ErrNotFound)
	}
	o.ID = uuid.NewString()
	if o.ObservedAt.IsZero() {
		o.ObservedAt = s.nowFunc()
	}
	s.observations[o.ProductID] = append(s.observations[o.ProductID], *o)
	return nil
}

// LatestObservation returns the newest observation for a product.
func (s *MemoryStore) LatestObservation(_ context.Context, productID string) (*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs := s.observations[productID]
	if len(obs) == 0 {
		return nil, fmt.Errorf("observations for %s: %w", productID, ErrNotFound)
	}
	o := obs[len(obs)-1]
	return &o, nil
}

// ListObservations returns up to limit observations, newest first.
func (s *MemoryStore) ListObservations(
	_ context.Context,
	productID string,
	limit int,
) ([]domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs := s.observations[productID]
	n := min(historyLimit(limit), len(obs))
	out := make([]domain.PriceObservation, 0, n)
	for i := len(obs) - 1; i >= len(obs)-n; i-- {
		out = append(out, obs[i])
	}
	return out, nil
}

// CreateTracker inserts a tracker for an existing user and product.
func (s *MemoryStore) CreateTracker(_ context.Context, t *domain.Tracker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[t.UserID]; !ok {
		return fmt.Errorf("user %s: %w", t.UserID, ErrNotFound)
	}
	if _, ok := s.products[t.ProductID]; !ok {
		return fmt.Errorf("product %s: %w", t.ProductID, ErrNotFound)
	}

	now := s.nowFunc()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.trackers[t.ID] = cloneTracker(*t)
	return nil
}

// GetTracker returns a tracker by ID.
func (s *MemoryStore) GetTracker(_ context.Context, id string) (*domain.Tracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trackers[id]
	if !ok {
		return nil, fmt.Errorf("tracker %s: %w", id, ErrNotFound)
	}
	t = cloneTracker(t)
	return &t, nil
}

// ListTrackers returns all trackers, optionally only active ones, oldest first.
func (s *MemoryStore) ListTrackers(_ context.Context, activeOnly bool) ([]domain.Tracker, error) {
	return s.filterTrackers(func(t *domain.Tracker) bool {
		return !activeOnly || t.Active
	}), nil
}

// ListTrackersByUser returns a user's trackers, oldest first.
func (s *MemoryStore) ListTrackersByUser(_ context.Context, userID string) ([]domain.Tracker, error) {
	return s.filterTrackers(func(t *domain.Tracker) bool {
		return t.UserID == userID
	}), nil
}

func (s *MemoryStore) filterTrackers(keep func(*domain.Tracker) bool) []domain.Tracker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Tracker
	for _, t := range s.trackers {
		if keep(&t) {
			out = append(out, cloneTracker(t))
		}
	}
	slices.SortFunc(out, func(a, b domain.Tracker) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// UpdateTracker replaces the user-editable fields: target price, active
// flag and check interval. A changed target re-arms the tracker; the
// crossing state is otherwise untouched and copied back onto t.
func (s *MemoryStore) UpdateTracker(_ context.Context, t *domain.Tracker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.trackers[t.ID]
	if !ok {
		return fmt.Errorf("tracker %s: %w", t.ID, ErrNotFound)
	}
	if !existing.TargetPrice.Equal(t.TargetPrice) {
		existing.LastNotifiedPrice = nil
	}
	existing.TargetPrice = t.TargetPrice
	existing.Active = t.Active
	existing.CheckInterval = t.CheckInterval
	existing.UpdatedAt = s.nowFunc()
	s.trackers[t.ID] = existing
	t.LastNotifiedPrice = cloneDecimal(existing.LastNotifiedPrice)
	t.UpdatedAt = existing.UpdatedAt
	return nil
}

// DeleteTracker removes a tracker and its notifications.
func (s *MemoryStore) DeleteTracker(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trackers[id]; !ok {
		return fmt.Errorf("tracker %s: %w", id, ErrNotFound)
	}
	delete(s.trackers, id)
	for nid, n := range s.notifications {
		if n.TrackerID == id {
			delete(s.notifications, nid)
		}
	}
	return nil
}

// RecordTrackerCheck stamps the last check time and its error text; an
// empty checkErr clears the previous error.
func (s *MemoryStore) RecordTrackerCheck(
	_ context.Context,
	id string,
	checkedAt time.Time,
	checkErr string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[id]
	if !ok {
		return fmt.Errorf("tracker %s: %w", id, ErrNotFound)
	}
	t.LastCheckedAt = &checkedAt
	t.LastError = checkErr
	s.trackers[id] = t
	return nil
}

// ClaimCrossing disarms the tracker and records the notification in one step.
func (s *MemoryStore) ClaimCrossing(
	_ context.Context,
	n *domain.Notification,
	price decimal.Decimal,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[n.TrackerID]
	if !ok {
		return false, fmt.Errorf("tracker %s: %w", n.TrackerID, ErrNotFound)
	}
	if !t.Armed() {
		return false, nil
	}

	t.LastNotifiedPrice = &price
	s.trackers[t.ID] = t

	n.ID = uuid.NewString()
	n.UserID = t.UserID
	n.Read = false
	n.CreatedAt = s.nowFunc()
	s.notifications[n.ID] = *n
	return true, nil
}

// RearmTracker clears the tracker's notified price.
func (s *MemoryStore) RearmTracker(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[id]
	if !ok {
		return fmt.Errorf("tracker %s: %w", id, ErrNotFound)
	}
	t.LastNotifiedPrice = nil
	s.trackers[id] = t
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *MemoryStore) ListNotifications(
	_ context.Context,
	userID string,
	unreadOnly bool,
) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Notification
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b domain.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// MarkNotificationRead flags a notification as read.
func (s *MemoryStore) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func cloneTracker(t domain.Tracker) domain.Tracker {
	if t.LastCheckedAt != nil {
		at := *t.LastCheckedAt
		t.LastCheckedAt = &at
	}
	t.LastNotifiedPrice = cloneDecimal(t.LastNotifiedPrice)
	return t
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
