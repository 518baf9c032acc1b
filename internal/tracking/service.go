// Package tracking implements the user-facing operations on trackers,
// products, users and notifications on top of the store and the engine.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/pricely/internal/engine"
	"github.com/donaldgifford/pricely/internal/notify"
	"github.com/donaldgifford/pricely/internal/source"
	"github.com/donaldgifford/pricely/internal/store"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

const (
	defaultFetchTimeout  = 30 * time.Second
	defaultCheckInterval = time.Hour
	minCheckInterval     = time.Minute
	welcomeTimeout       = 15 * time.Second
)

var (
	// ErrCouldNotAdd is returned when the first fetch of a new product fails.
	ErrCouldNotAdd = errors.New("could not add product")

	// ErrInvalidInput is returned for rejected field values.
	ErrInvalidInput = errors.New("invalid input")
)

// Sources classifies and resolves product URLs.
type Sources interface {
	Supports(rawURL string) bool
	Resolve(rawURL string) (source.Adapter, error)
}

// Scheduler is the part of the engine the service drives.
type Scheduler interface {
	Track(t domain.Tracker)
	Forget(trackerID string)
	CheckNowResult(ctx context.Context, trackerID string) (engine.CheckResult, error)
}

// Service exposes tracker management operations.
type Service struct {
	store           store.Store
	sources         Sources
	scheduler       Scheduler
	mailer          notify.Dispatcher
	log             *slog.Logger
	fetchTimeout    time.Duration
	defaultInterval time.Duration
	now             func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithFetchTimeout bounds the first fetch of a new product.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithDefaultInterval sets the interval for trackers added without one.
func WithDefaultInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultInterval = d
		}
	}
}

// WithWelcomeMailer sends a welcome message to every new user through d.
// Without it registration sends nothing.
func WithWelcomeMailer(d notify.Dispatcher) Option {
	return func(s *Service) {
		s.mailer = d
	}
}

// NewService creates a new Service.
func NewService(st store.Store, src Sources, sched Scheduler, opts ...Option) *Service {
	s := &Service{
		store:           st,
		sources:         src,
		scheduler:       sched,
		log:             slog.Default(),
		fetchTimeout:    defaultFetchTimeout,
		defaultInterval: defaultCheckInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser registers a user.
func (s *Service) CreateUser(ctx context.Context, username, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidInput, email)
	}

	u := &domain.User{Username: username, Email: email}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.welcome(ctx, u)
	return u, nil
}

// welcome mails a newly registered user. A failed send is logged and the
// user stays registered.
func (s *Service) welcome(ctx context.Context, u *domain.User) {
	if s.mailer == nil {
		return
	}

	msg := &notify.Message{
		Recipient: notify.Recipient{
			UserID:   u.ID,
			Username: u.Username,
			Email:    u.Email,
		},
		Subject: "Welcome to pricely",
		Body: fmt.Sprintf("Hi %s,\n\n"+
			"Your pricely account is ready. Track a product by its URL and a target price, "+
			"and you will get an alert as soon as the price drops to it.\n", u.Username),
	}

	ctx, cancel := context.WithTimeout(ctx, welcomeTimeout)
	defer cancel()

	if err := s.mailer.Deliver(ctx, msg); err != nil {
		s.log.Warn("welcome mail failed", "user", u.ID, "error", err)
	}
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.store.GetUser(ctx, id)
}

// AddTrackerInput holds the fields for a new tracker.
type AddTrackerInput struct {
	UserID        string
	URL           string
	TargetPrice   decimal.Decimal
	CheckInterval time.Duration // zero means the default interval
}

// AddTracker starts tracking a product URL for a user. Unsupported URLs are
// rejected before any I/O. A product already known by URL is reused;
// otherwise it is fetched once and created together with its first
// observation.
func (s *Service) AddTracker(ctx context.Context, in AddTrackerInput) (*domain.TrackerDetail, error) {
	rawURL := strings.TrimSpace(in.URL)
	if !s.sources.Supports(rawURL) {
		return nil, fmt.Errorf("%w: %s", source.ErrUnsupportedSource, rawURL)
	}
	if in.TargetPrice.IsNegative() {
		return nil, fmt.Errorf("%w: target price must not be negative", ErrInvalidInput)
	}
	interval, err := s.interval(in.CheckInterval)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetUser(ctx, in.UserID); err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	p, err := s.productFor(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	t := &domain.Tracker{
		UserID:        in.UserID,
		ProductID:     p.ID,
		TargetPrice:   in.TargetPrice,
		Active:        true,
		CheckInterval: interval,
	}
	if err := s.store.CreateTracker(ctx, t); err != nil {
		return nil, fmt.Errorf("creating tracker: %w", err)
	}
	s.scheduler.Track(*t)

	s.log.Info("tracker added",
		"tracker", t.ID,
		"user", t.UserID,
		"product", p.ID,
		"target", t.TargetPrice,
	)
	return s.detail(ctx, t, p)
}

func (s *Service) productFor(ctx context.Context, rawURL string) (*domain.Product, error) {
	p, err := s.store.GetProductByURL(ctx, rawURL)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up product: %w", err)
	}

	adapter, err := s.sources.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	snap, err := adapter.Fetch(fetchCtx, rawURL)
	if err == nil && snap == nil {
		err = source.ErrNoPrice
	}
	if err != nil {
		s.log.Warn("first fetch failed", "url", rawURL, "source", adapter.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCouldNotAdd, err)
	}

	p = &domain.Product{
		URL:         rawURL,
		Website:     adapter.Name(),
		ExternalID:  snap.ExternalID,
		Name:        snap.Name,
		ImageURL:    snap.ImageURL,
		Description: snap.Description,
	}
	created, err := s.store.GetOrCreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	if !created || snap.Price.IsNegative() {
		return p, nil
	}

	currency := domain.DefaultCurrency
	if code, ok := source.NormalizeCurrency(snap.Currency); ok {
		currency = code
	}
	obs := &domain.PriceObservation{
		ProductID:  p.ID,
		Price:      snap.Price,
		Currency:   currency,
		Available:  snap.Available,
		ObservedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.AppendObservation(ctx, obs); err != nil {
		s.log.Warn("recording first observation", "product", p.ID, "error", err)
	}
	return p, nil
}

// GetTracker returns a tracker with its product and latest observation.
func (s *Service) GetTracker(ctx context.Context, id string) (*domain.TrackerDetail, error) {
	t, err := s.store.GetTracker(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProduct(ctx, t.ProductID)
	if err != nil {
		return nil, fmt.Errorf("loading product: %w", err)
	}
	return s.detail(ctx, t, p)
}

func (s *Service) detail(ctx context.Context, t *domain.Tracker, p *domain.Product) (*domain.TrackerDetail, error) {
	d := &domain.TrackerDetail{Tracker: *t, Product: *p}
	latest, err := s.store.LatestObservation(ctx, p.ID)
	switch {
	case err == nil:
		d.Latest = latest
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("loading latest observation: %w", err)
	}
	return d, nil
}

// ListTrackers returns a user's trackers, or every tracker when userID is
// empty.
func (s *Service) ListTrackers(ctx context.Context, userID string) ([]domain.Tracker, error) {
	if userID == "" {
		return s.store.ListTrackers(ctx, false)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListTrackersByUser(ctx, userID)
}

// TrackerPatch lists the tracker fields to change; nil means unchanged.
type TrackerPatch struct {
	TargetPrice   *decimal.Decimal
	Active        *bool
	CheckInterval *time.Duration
}

// UpdateTracker applies a patch. Changing the target re-arms the tracker so
// the next observation at or below the new target notifies again. The
// crossing state is owned by the store and never written from here, so a
// check that notifies while the patch is applied is not undone.
func (s *Service) UpdateTracker(ctx context.Context, id string, patch TrackerPatch) (*domain.Tracker, error) {
	t, err := s.store.GetTracker(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.TargetPrice != nil {
		if patch.TargetPrice.IsNegative() {
			return nil, fmt.Errorf("%w: target price must not be negative", ErrInvalidInput)
		}
		t.TargetPrice = *patch.TargetPrice
	}
	if patch.CheckInterval != nil {
		interval, err := s.interval(*patch.CheckInterval)
		if err != nil {
			return nil, err
		}
		t.CheckInterval = interval
	}
	if patch.Active != nil {
		t.Active = *patch.Active
	}

	if err := s.store.UpdateTracker(ctx, t); err != nil {
		return nil, fmt.Errorf("updating tracker: %w", err)
	}

	if t.Active {
		s.scheduler.Track(*t)
	} else {
		s.scheduler.Forget(t.ID)
	}
	return t, nil
}

// DeleteTracker removes a tracker. An in-flight check is not waited for.
func (s *Service) DeleteTracker(ctx context.Context, id string) error {
	if err := s.store.DeleteTracker(ctx, id); err != nil {
		return err
	}
	s.scheduler.Forget(id)
	s.log.Info("tracker deleted", "tracker", id)
	return nil
}

// CheckNow forces a check of one tracker.
func (s *Service) CheckNow(ctx context.Context, id string) (engine.CheckResult, error) {
	if _, err := s.store.GetTracker(ctx, id); err != nil {
		return engine.CheckResult{TrackerID: id}, err
	}
	return s.scheduler.CheckNowResult(ctx, id)
}

// History returns up to limit observations of the tracker's product,
// newest first.
func (s *Service) History(ctx context.Context, trackerID string, limit int) ([]domain.PriceObservation, error) {
	t, err := s.store.GetTracker(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	return s.store.ListObservations(ctx, t.ProductID, limit)
}

// Notifications returns a user's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

// MarkNotificationRead flags a notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) interval(d time.Duration) (time.Duration, error) {
	switch {
	case d == 0:
		return s.defaultInterval, nil
	case d < minCheckInterval:
		return 0, fmt.Errorf("%w: check interval must be at least %s", ErrInvalidInput, minCheckInterval)
	default:
		return d, nil
	}
}
