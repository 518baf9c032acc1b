package engine

import (
	"context"
	"fmt"

	"github.com/donaldgifford/pricely/internal/metrics"
	"github.com/donaldgifford/pricely/internal/notify"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

// evaluateCrossing applies the downward-crossing rule to a fresh
// observation. A price above target re-arms the tracker. A price at or
// below target on an armed tracker creates exactly one notification and
// queues its delivery. It reports whether a notification was created.
func (e *Engine) evaluateCrossing(
	ctx context.Context,
	t *domain.Tracker,
	p *domain.Product,
	obs *domain.PriceObservation,
) (bool, error) {
	if obs.Price.GreaterThan(t.TargetPrice) {
		if t.Armed() {
			return false, nil
		}
		if err := e.store.RearmTracker(ctx, t.ID); err != nil {
			return false, fmt.Errorf("re-arming tracker: %w", err)
		}
		e.log.Debug("tracker re-armed", "tracker", t.ID, "price", obs.Price)
		return false, nil
	}

	if !t.Armed() {
		return false, nil
	}

	subject, body := formatAlert(t, p, obs)
	n := &domain.Notification{
		UserID:    t.UserID,
		TrackerID: t.ID,
		Message:   body,
	}
	claimed, err := e.store.ClaimCrossing(ctx, n, obs.Price)
	if err != nil {
		return false, fmt.Errorf("creating notification: %w", err)
	}
	if !claimed {
		return false, nil
	}
	metrics.NotificationsCreatedTotal.Inc()

	e.log.Info("price crossed target",
		"tracker", t.ID,
		"price", obs.Price,
		"target", t.TargetPrice,
	)

	e.deliverLater(ctx, t, p, obs, n, subject)
	return true, nil
}

// deliverLater runs deliver on its own goroutine, outside the worker slot
// and the in-flight marker of the run that created n. Stop waits for it
// like any in-flight run.
func (e *Engine) deliverLater(
	ctx context.Context,
	t *domain.Tracker,
	p *domain.Product,
	obs *domain.PriceObservation,
	n *domain.Notification,
	subject string,
) {
	e.mu.Lock()
	wg := e.wg
	wg.Add(1)
	e.mu.Unlock()

	metrics.DeliveriesPending.Inc()
	go func() {
		defer wg.Done()
		defer metrics.DeliveriesPending.Dec()
		e.deliver(ctx, t, p, obs, n, subject)
	}()
}

// deliver hands the notification to the dispatcher. Failures are logged
// and never undo the observation or the notification.
func (e *Engine) deliver(
	ctx context.Context,
	t *domain.Tracker,
	p *domain.Product,
	obs *domain.PriceObservation,
	n *domain.Notification,
	subject string,
) {
	u, err := e.store.GetUser(ctx, t.UserID)
	if err != nil {
		e.log.Warn("delivery skipped",
			"tracker", t.ID,
			"notification", n.ID,
			"error", fmt.Errorf("%w: loading user: %w", ErrDelivery, err),
		)
		return
	}

	msg := &notify.Message{
		Recipient: notify.Recipient{
			UserID:   u.ID,
			Username: u.Username,
			Email:    u.Email,
		},
		NotificationID: n.ID,
		TrackerID:      t.ID,
		Subject:        subject,
		Body:           n.Message,
		ProductName:    displayName(p),
		ProductURL:     p.URL,
		ImageURL:       p.ImageURL,
		Price:          obs.Price.StringFixed(2),
		TargetPrice:    t.TargetPrice.StringFixed(2),
		Currency:       obs.Currency,
	}

	ctx, cancel := context.WithTimeout(ctx, e.deliveryTimeout)
	defer cancel()

	if err := e.dispatcher.Deliver(ctx, msg); err != nil {
		e.log.Warn("delivery failed",
			"tracker", t.ID,
			"notification", n.ID,
			"error", fmt.Errorf("%w: %w", ErrDelivery, err),
		)
	}
}

func formatAlert(t *domain.Tracker, p *domain.Product, obs *domain.PriceObservation) (string, string) {
	name := displayName(p)
	subject := "Price alert: " + name
	body := fmt.Sprintf("%s is now %s %s (target %s %s).\n%s",
		name,
		obs.Price.StringFixed(2), obs.Currency,
		t.TargetPrice.StringFixed(2), obs.Currency,
		p.URL,
	)
	return subject, body
}

func displayName(p *domain.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return p.URL
}
