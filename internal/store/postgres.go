package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

const (
	defaultPoolSize   = 10
	uniqueViolation   = "23505"
	foreignKeyMissing = "23503"
	invalidText       = "22P02"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
// Its methods are exercised by the integration-tagged contract tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
// A pool_max_conns setting in connString takes precedence over the default.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultPoolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateUser inserts a user.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	args := pgx.NamedArgs{
		"username": u.Username,
		"email":    u.Email,
	}
	err := s.pool.QueryRow(ctx, queryCreateUser, args).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", mapErr(err))
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.pool.QueryRow(ctx, queryGetUser, id).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, mapErr(err))
	}
	return u, nil
}

// GetOrCreateProduct inserts p unless a product with the same URL exists,
// and overwrites p with the stored row either way.
func (s *PostgresStore) GetOrCreateProduct(ctx context.Context, p *domain.Product) (bool, error) {
	args := pgx.NamedArgs{
		"url":         p.URL,
		"website":     p.Website,
		"external_id": p.ExternalID,
		"name":        p.Name,
		"image_url":   p.ImageURL,
		"description": p.Description,
	}

	var inserted bool
	row := s.pool.QueryRow(ctx, queryGetOrCreateProduct, args)
	if err := row.Scan(append(productDest(p), &inserted)...); err != nil {
		return false, fmt.Errorf("upserting product: %w", mapErr(err))
	}
	return inserted, nil
}

// GetProduct retrieves a product by ID.
func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	if err := s.pool.QueryRow(ctx, queryGetProduct, id).Scan(productDest(p)...); err != nil {
		return nil, fmt.Errorf("product %s: %w", id, mapErr(err))
	}
	return p, nil
}

// GetProductByURL retrieves a product by its canonical URL.
func (s *PostgresStore) GetProductByURL(ctx context.Context, url string) (*domain.Product, error) {
	p := &domain.Product{}
	if err := s.pool.QueryRow(ctx, queryGetProductByURL, url).Scan(productDest(p)...); err != nil {
		return nil, fmt.Errorf("product %s: %w", url, mapErr(err))
	}
	return p, nil
}

// UpdateProductDetails replaces a product's display fields.
func (s *PostgresStore) UpdateProductDetails(ctx context.Context, p *domain.Product) error {
	args := pgx.NamedArgs{
		"id":          p.ID,
		"external_id": p.ExternalID,
		"name":        p.Name,
		"image_url":   p.ImageURL,
		"description": p.Description,
	}
	if err := s.pool.QueryRow(ctx, queryUpdateProductDetails, args).Scan(&p.UpdatedAt); err != nil {
		return fmt.Errorf("updating product %s: %w", p.ID, mapErr(err))
	}
	return nil
}

// AppendObservation records a price observation.
func (s *PostgresStore) AppendObservation(ctx context.Context, o *domain.PriceObservation) error {
	if o.ObservedAt.IsZero() {
		o.ObservedAt = time.Now()
	}
	args := pgx.NamedArgs{
		"product_id":  o.ProductID,
		"price":       o.Price,
		"currency":    o.Currency,
		"available":   o.Available,
		"observed_at": o.ObservedAt,
	}
	if err := s.pool.QueryRow(ctx, queryAppendObservation, args).Scan(&o.ID); err != nil {
		return fmt.Errorf("appending observation: %w", mapErr(err))
	}
	return nil
}

// LatestObservation returns the newest observation for a product.
func (s *PostgresStore) LatestObservation(
	ctx context.Context,
	productID string,
) (*domain.PriceObservation, error) {
	o := &domain.PriceObservation{}
	if err := scanObservation(s.pool.QueryRow(ctx, queryLatestObservation, productID), o); err != nil {
		return nil, fmt.Errorf("observations for %s: %w", productID, mapErr(err))
	}
	return o, nil
}

// ListObservations returns up to limit observations, newest first.
func (s *PostgresStore) ListObservations(
	ctx context.Context,
	productID string,
	limit int,
) ([]domain.PriceObservation, error) {
	rows, err := s.pool.Query(ctx, queryListObservations, productID, historyLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceObservation
	for rows.Next() {
		var o domain.PriceObservation
		if err := scanObservation(rows, &o); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateTracker inserts a tracker.
func (s *PostgresStore) CreateTracker(ctx context.Context, t *domain.Tracker) error {
	args := pgx.NamedArgs{
		"user_id":                t.UserID,
		"product_id":             t.ProductID,
		"target_price":           t.TargetPrice,
		"active":                 t.Active,
		"check_interval_seconds": int64(t.CheckInterval / time.Second),
	}
	err := s.pool.QueryRow(ctx, queryCreateTracker, args).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating tracker: %w", mapErr(err))
	}
	return nil
}

// GetTracker retrieves a tracker by ID.
func (s *PostgresStore) GetTracker(ctx context.Context, id string) (*domain.Tracker, error) {
	t := &domain.Tracker{}
	if err := scanTracker(s.pool.QueryRow(ctx, queryGetTracker, id), t); err != nil {
		return nil, fmt.Errorf("tracker %s: %w", id, mapErr(err))
	}
	return t, nil
}

// ListTrackers returns all trackers, optionally filtered to active only.
func (s *PostgresStore) ListTrackers(ctx context.Context, activeOnly bool) ([]domain.Tracker, error) {
	query := queryListTrackersAll
	if activeOnly {
		query = queryListTrackersActive
	}
	return s.queryTrackers(ctx, query)
}

// ListTrackersByUser returns a user's trackers.
func (s *PostgresStore) ListTrackersByUser(ctx context.Context, userID string) ([]domain.Tracker, error) {
	return s.queryTrackers(ctx, queryListTrackersByUser, userID)
}

func (s *PostgresStore) queryTrackers(ctx context.Context, query string, args ...any) ([]domain.Tracker, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trackers: %w", err)
	}
	defer rows.Close()

	var out []domain.Tracker
	for rows.Next() {
		var t domain.Tracker
		if err := scanTracker(rows, &t); err != nil {
			return nil, fmt.Errorf("scanning tracker: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTracker replaces the user-editable fields of a tracker: target
// price, active flag and check interval. A changed target re-arms it. The
// resulting crossing state is copied back onto t.
func (s *PostgresStore) UpdateTracker(ctx context.Context, t *domain.Tracker) error {
	args := pgx.NamedArgs{
		"id":                     t.ID,
		"target_price":           t.TargetPrice,
		"active":                 t.Active,
		"check_interval_seconds": int64(t.CheckInterval / time.Second),
	}
	var notified decimal.NullDecimal
	if err := s.pool.QueryRow(ctx, queryUpdateTracker, args).Scan(&notified, &t.UpdatedAt); err != nil {
		return fmt.Errorf("updating tracker %s: %w", t.ID, mapErr(err))
	}
	t.LastNotifiedPrice = nil
	if notified.Valid {
		p := notified.Decimal
		t.LastNotifiedPrice = &p
	}
	return nil
}

// DeleteTracker removes a tracker; its notifications cascade.
func (s *PostgresStore) DeleteTracker(ctx context.Context, id string) error {
	return s.execOne(ctx, "deleting tracker "+id, queryDeleteTracker, id)
}

// RecordTrackerCheck stamps the last check time and its error text.
func (s *PostgresStore) RecordTrackerCheck(
	ctx context.Context,
	id string,
	checkedAt time.Time,
	checkErr string,
) error {
	return s.execOne(ctx, "recording check for "+id, queryRecordTrackerCheck, id, checkedAt, checkErr)
}

// ClaimCrossing disarms the tracker and inserts the notification in one
// transaction. A tracker that is already disarmed yields false.
func (s *PostgresStore) ClaimCrossing(
	ctx context.Context,
	n *domain.Notification,
	price decimal.Decimal,
) (bool, error) {
	var claimed bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, queryDisarmTracker, n.TrackerID, price).Scan(&n.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, queryTrackerExists, n.TrackerID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return nil
		}
		if err != nil {
			return err
		}

		args := pgx.NamedArgs{
			"user_id":    n.UserID,
			"tracker_id": n.TrackerID,
			"message":    n.Message,
		}
		if err := tx.QueryRow(ctx, queryCreateNotification, args).Scan(&n.ID, &n.CreatedAt); err != nil {
			return err
		}
		n.Read = false
		claimed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("claiming crossing for %s: %w", n.TrackerID, mapErr(err))
	}
	return claimed, nil
}

// RearmTracker clears the tracker's notified price.
func (s *PostgresStore) RearmTracker(ctx context.Context, id string) error {
	return s.execOne(ctx, "rearming tracker "+id, queryRearmTracker, id)
}

// ListNotifications returns a user's notifications, newest first.
func (s *PostgresStore) ListNotifications(
	ctx context.Context,
	userID string,
	unreadOnly bool,
) ([]domain.Notification, error) {
	query := queryListNotifications
	if unreadOnly {
		query = queryListUnreadNotifications
	}

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TrackerID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification as read.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id string) error {
	return s.execOne(ctx, "marking notification "+id, queryMarkNotificationRead, id)
}

// execOne runs a statement that must touch exactly one row.
func (s *PostgresStore) execOne(ctx context.Context, what, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.ID, &p.URL, &p.Website, &p.ExternalID, &p.Name,
		&p.ImageURL, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	}
}

func scanObservation(row scannable, o *domain.PriceObservation) error {
	return row.Scan(&o.ID, &o.ProductID, &o.Price, &o.Currency, &o.Available, &o.ObservedAt)
}

func scanTracker(row scannable, t *domain.Tracker) error {
	var (
		intervalSeconds int64
		notified        decimal.NullDecimal
	)
	if err := row.Scan(
		&t.ID, &t.UserID, &t.ProductID, &t.TargetPrice, &t.Active, &intervalSeconds,
		&t.LastCheckedAt, &t.LastError, &notified, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return err
	}
	t.CheckInterval = time.Duration(intervalSeconds) * time.Second
	t.LastNotifiedPrice = nil
	if notified.Valid {
		p := notified.Decimal
		t.LastNotifiedPrice = &p
	}
	return nil
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case foreignKeyMissing, invalidText:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
