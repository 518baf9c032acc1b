package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/pricely/internal/metrics"
	"github.com/donaldgifford/pricely/internal/source"
	"github.com/donaldgifford/pricely/internal/store"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

// check runs one full pipeline for a tracker: resolve, fetch, validate,
// append observation, record the check, refresh product details and
// evaluate the crossing. Scheduled runs skip trackers that were deactivated
// since they were queued; forced runs do not.
func (e *Engine) check(ctx context.Context, trackerID string, forced bool) (res CheckResult, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.check", trace.WithAttributes(
		attribute.String("tracker.id", trackerID),
		attribute.Bool("check.forced", forced),
	))
	defer func() {
		span.SetAttributes(attribute.String("check.outcome", res.Outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, res.Outcome)
		}
		span.End()
	}()

	res = CheckResult{TrackerID: trackerID}

	t, err := e.store.GetTracker(ctx, trackerID)
	if err != nil {
		return e.storeFailure(res, fmt.Errorf("loading tracker: %w", err))
	}
	if !t.Active && !forced {
		err = fmt.Errorf("%w: %s is inactive", ErrTrackerGone, trackerID)
		res.Outcome = outcomeFor(err)
		return res, err
	}

	p, err := e.store.GetProduct(ctx, t.ProductID)
	if err != nil {
		return e.storeFailure(res, fmt.Errorf("loading product: %w", err))
	}
	span.SetAttributes(attribute.String("product.url", p.URL))

	adapter, err := e.resolver.Resolve(p.URL)
	if err != nil {
		return e.recordFailure(ctx, res, ErrAdapter, err)
	}
	span.SetAttributes(attribute.String("source", adapter.Name()))

	snap, err := e.fetch(ctx, adapter, p.URL)
	if err != nil {
		return e.recordFailure(ctx, res, ErrFetch, err)
	}

	currency, err := validateSnapshot(snap)
	if err != nil {
		return e.recordFailure(ctx, res, ErrValidation, err)
	}

	obs := &domain.PriceObservation{
		ProductID:  p.ID,
		Price:      snap.Price,
		Currency:   currency,
		Available:  snap.Available,
		ObservedAt: e.stamp(),
	}
	if err := e.store.AppendObservation(ctx, obs); err != nil {
		return e.storeFailure(res, fmt.Errorf("appending observation: %w", err))
	}
	metrics.ObservationsTotal.Inc()
	res.Price = &obs.Price
	res.Currency = obs.Currency

	if err := e.store.RecordTrackerCheck(ctx, t.ID, obs.ObservedAt, ""); err != nil {
		return e.storeFailure(res, fmt.Errorf("recording check: %w", err))
	}
	res.CheckedAt = obs.ObservedAt

	e.refreshProduct(ctx, p, snap)

	notified, err := e.evaluateCrossing(ctx, t, p, obs)
	if err != nil {
		return e.storeFailure(res, fmt.Errorf("evaluating crossing: %w", err))
	}
	res.Notified = notified

	res.Outcome = outcomeFor(nil)
	return res, nil
}

// stamp is the current time at the precision Postgres stores, so a time
// read back from the store equals the one the schedule holds in memory.
func (e *Engine) stamp() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

func (e *Engine) fetch(ctx context.Context, a source.Adapter, rawURL string) (*source.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	snap, err := a.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, source.ErrNoPrice
	}
	return snap, nil
}

// validateSnapshot checks the price and returns the normalized currency.
// A snapshot without a currency is taken to be in the default currency.
func validateSnapshot(s *source.Snapshot) (string, error) {
	if s.Price.IsNegative() {
		return "", fmt.Errorf("negative price %s", s.Price)
	}
	if s.Currency == "" {
		return domain.DefaultCurrency, nil
	}
	code, ok := source.NormalizeCurrency(s.Currency)
	if !ok {
		return "", fmt.Errorf("unknown currency %q", s.Currency)
	}
	return code, nil
}

// recordFailure stores last_checked and last_error for a check that failed
// before anything was persisted.
func (e *Engine) recordFailure(ctx context.Context, res CheckResult, kind, cause error) (CheckResult, error) {
	err := fmt.Errorf("%w: %w", kind, cause)
	res.Outcome = outcomeFor(err)

	checkedAt := e.stamp()
	if recErr := e.store.RecordTrackerCheck(ctx, res.TrackerID, checkedAt, err.Error()); recErr != nil {
		if errors.Is(recErr, store.ErrNotFound) {
			return e.storeFailure(res, recErr)
		}
		e.log.Warn("recording check failure",
			"tracker", res.TrackerID,
			"error", recErr,
		)
		return res, err
	}
	res.CheckedAt = checkedAt
	return res, err
}

// storeFailure classifies a store error: a missing row means the tracker
// went away mid-flight, anything else is a persistence failure.
func (e *Engine) storeFailure(res CheckResult, err error) (CheckResult, error) {
	if errors.Is(err, store.ErrNotFound) {
		err = fmt.Errorf("%w: %w", ErrTrackerGone, err)
	} else {
		err = fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	res.Outcome = outcomeFor(err)
	return res, err
}

// refreshProduct copies non-empty display fields from the snapshot onto
// the product when they differ.
func (e *Engine) refreshProduct(ctx context.Context, p *domain.Product, s *source.Snapshot) {
	changed := false
	update := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	update(&p.Name, s.Name)
	update(&p.ImageURL, s.ImageURL)
	update(&p.Description, s.Description)
	update(&p.ExternalID, s.ExternalID)

	if !changed {
		return
	}
	if err := e.store.UpdateProductDetails(ctx, p); err != nil {
		e.log.Warn("refreshing product details", "product", p.ID, "error", err)
	}
}
