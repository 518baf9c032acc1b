package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// AddTrackerRequest is the body of POST /api/v1/trackers. TargetPrice is a
// decimal string and CheckInterval a Go duration string.
type AddTrackerRequest struct {
	UserID        string `json:"user_id"`
	URL           string `json:"url"`
	TargetPrice   string `json:"target_price"`
	CheckInterval string `json:"check_interval,omitempty"`
}

// UpdateTrackerRequest is the body of PATCH /api/v1/trackers/{id}. Nil
// fields are left unchanged.
type UpdateTrackerRequest struct {
	TargetPrice   *string `json:"target_price,omitempty"`
	Active        *bool   `json:"active,omitempty"`
	CheckInterval *string `json:"check_interval,omitempty"`
}

// CheckResult is the response of a forced check.
type CheckResult struct {
	Success   bool             `json:"success"`
	Outcome   string           `json:"outcome"`
	Error     string           `json:"error,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Notified  bool             `json:"notified"`
	CheckedAt *time.Time       `json:"checked_at,omitempty"`
}

// AddTracker starts tracking a product URL.
func (c *Client) AddTracker(ctx context.Context, req AddTrackerRequest) (*domain.TrackerDetail, error) {
	var d domain.TrackerDetail
	if err := c.post(ctx, "/api/v1/trackers", req, &d); err != nil {
		return nil, fmt.Errorf("adding tracker: %w", err)
	}
	return &d, nil
}

// ListTrackers returns trackers, optionally only those of one user.
func (c *Client) ListTrackers(ctx context.Context, userID string) ([]domain.Tracker, error) {
	path := "/api/v1/trackers"
	if userID != "" {
		path += "?" + url.Values{"user_id": {userID}}.Encode()
	}

	var trackers []domain.Tracker
	if err := c.get(ctx, path, &trackers); err != nil {
		return nil, fmt.Errorf("listing trackers: %w", err)
	}
	return trackers, nil
}

// GetTracker returns a tracker with its product and latest observation.
func (c *Client) GetTracker(ctx context.Context, id string) (*domain.TrackerDetail, error) {
	var d domain.TrackerDetail
	if err := c.get(ctx, trackerPath(id), &d); err != nil {
		return nil, fmt.Errorf("getting tracker %s: %w", id, err)
	}
	return &d, nil
}

// UpdateTracker patches a tracker.
func (c *Client) UpdateTracker(ctx context.Context, id string, req UpdateTrackerRequest) (*domain.Tracker, error) {
	var t domain.Tracker
	if err := c.patch(ctx, trackerPath(id), req, &t); err != nil {
		return nil, fmt.Errorf("updating tracker %s: %w", id, err)
	}
	return &t, nil
}

// DeleteTracker removes a tracker.
func (c *Client) DeleteTracker(ctx context.Context, id string) error {
	if err := c.del(ctx, trackerPath(id)); err != nil {
		return fmt.Errorf("deleting tracker %s: %w", id, err)
	}
	return nil
}

// CheckTracker forces an immediate check.
func (c *Client) CheckTracker(ctx context.Context, id string) (*CheckResult, error) {
	var res CheckResult
	if err := c.post(ctx, trackerPath(id)+"/check", nil, &res); err != nil {
		return nil, fmt.Errorf("checking tracker %s: %w", id, err)
	}
	return &res, nil
}

// History returns up to limit observations, newest first. A non-positive
// limit uses the server default.
func (c *Client) History(ctx context.Context, id string, limit int) ([]domain.PriceObservation, error) {
	path := trackerPath(id) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var obs []domain.PriceObservation
	if err := c.get(ctx, path, &obs); err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", id, err)
	}
	return obs, nil
}

func trackerPath(id string) string {
	return "/api/v1/trackers/" + url.PathEscape(id)
}
