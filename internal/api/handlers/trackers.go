package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/donaldgifford/pricely/internal/engine"
	"github.com/donaldgifford/pricely/internal/store"
	"github.com/donaldgifford/pricely/internal/tracking"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

// TrackerProvider defines the service methods required by the trackers
// handler.
type TrackerProvider interface {
	AddTracker(ctx context.Context, in tracking.AddTrackerInput) (*domain.TrackerDetail, error)
	GetTracker(ctx context.Context, id string) (*domain.TrackerDetail, error)
	ListTrackers(ctx context.Context, userID string) ([]domain.Tracker, error)
	UpdateTracker(ctx context.Context, id string, patch tracking.TrackerPatch) (*domain.Tracker, error)
	DeleteTracker(ctx context.Context, id string) error
	CheckNow(ctx context.Context, id string) (engine.CheckResult, error)
	History(ctx context.Context, trackerID string, limit int) ([]domain.PriceObservation, error)
}

// TrackerHandler handles tracker CRUD, forced checks and price history.
type TrackerHandler struct {
	svc TrackerProvider
}

// NewTrackerHandler creates a new TrackerHandler.
func NewTrackerHandler(s TrackerProvider) *TrackerHandler {
	return &TrackerHandler{svc: s}
}

// TrackerIDInput is the request path for a single tracker.
type TrackerIDInput struct {
	ID string `path:"id" doc:"Tracker UUID"`
}

// AddTrackerInput is the request body for adding a tracker.
type AddTrackerInput struct {
	Body struct {
		UserID        string `json:"user_id" doc:"Owning user UUID"`
		URL           string `json:"url" example:"https://shop.example.com/p/123" doc:"Product page URL"`
		TargetPrice   string `json:"target_price" example:"99.99" doc:"Notify at or below this price"`
		CheckInterval string `json:"check_interval,omitempty" example:"30m" doc:"Go duration; defaults to the server setting"`
	}
}

// TrackerDetailOutput is the response body for a tracker with its product.
type TrackerDetailOutput struct {
	Body *domain.TrackerDetail
}

// ListTrackersInput filters the tracker list.
type ListTrackersInput struct {
	UserID string `query:"user_id" doc:"Only trackers owned by this user"`
}

// ListTrackersOutput is the response body for listing trackers.
type ListTrackersOutput struct {
	Body []domain.Tracker
}

// UpdateTrackerInput is the request for patching a tracker. Omitted fields
// are left unchanged.
type UpdateTrackerInput struct {
	ID   string `path:"id" doc:"Tracker UUID"`
	Body struct {
		TargetPrice   *string `json:"target_price,omitempty" example:"89.00" doc:"New target price; re-arms the tracker"`
		Active        *bool   `json:"active,omitempty" doc:"Pause or resume checking"`
		CheckInterval *string `json:"check_interval,omitempty" example:"2h" doc:"Go duration"`
	}
}

// TrackerOutput is the response body for a single tracker.
type TrackerOutput struct {
	Body *domain.Tracker
}

// CheckOutput is the response body for a forced check.
type CheckOutput struct {
	Body struct {
		Success   bool             `json:"success" doc:"Whether the price was fetched and recorded"`
		Outcome   string           `json:"outcome" example:"success" doc:"Check outcome kind"`
		Error     string           `json:"error,omitempty" doc:"Failure detail"`
		Price     *decimal.Decimal `json:"price,omitempty" doc:"Observed price"`
		Currency  string           `json:"currency,omitempty" example:"USD"`
		Notified  bool             `json:"notified" doc:"Whether this check created a notification"`
		CheckedAt *time.Time       `json:"checked_at,omitempty"`
	}
}

// HistoryInput is the request for a tracker's price history.
type HistoryInput struct {
	ID    string `path:"id" doc:"Tracker UUID"`
	Limit int    `query:"limit" default:"30" minimum:"1" maximum:"1000" doc:"Number of observations"`
}

// HistoryOutput is the response body for price history, newest first.
type HistoryOutput struct {
	Body []domain.PriceObservation
}

// Add starts tracking a product URL.
func (h *TrackerHandler) Add(ctx context.Context, input *AddTrackerInput) (*TrackerDetailOutput, error) {
	target, err := decimal.NewFromString(input.Body.TargetPrice)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid target_price: " + err.Error())
	}
	interval, err := parseInterval(input.Body.CheckInterval)
	if err != nil {
		return nil, err
	}

	d, err := h.svc.AddTracker(ctx, tracking.AddTrackerInput{
		UserID:        input.Body.UserID,
		URL:           input.Body.URL,
		TargetPrice:   target,
		CheckInterval: interval,
	})
	if err != nil {
		return nil, apiError("adding tracker", err)
	}
	return &TrackerDetailOutput{Body: d}, nil
}

// List returns trackers, optionally for one user.
func (h *TrackerHandler) List(ctx context.Context, input *ListTrackersInput) (*ListTrackersOutput, error) {
	trackers, err := h.svc.ListTrackers(ctx, input.UserID)
	if err != nil {
		return nil, apiError("listing trackers", err)
	}
	if trackers == nil {
		trackers = []domain.Tracker{}
	}
	return &ListTrackersOutput{Body: trackers}, nil
}

// Get returns a tracker with its product and latest observation.
func (h *TrackerHandler) Get(ctx context.Context, input *TrackerIDInput) (*TrackerDetailOutput, error) {
	d, err := h.svc.GetTracker(ctx, input.ID)
	if err != nil {
		return nil, apiError("getting tracker", err)
	}
	return &TrackerDetailOutput{Body: d}, nil
}

// Update patches a tracker.
func (h *TrackerHandler) Update(ctx context.Context, input *UpdateTrackerInput) (*TrackerOutput, error) {
	var patch tracking.TrackerPatch
	if input.Body.TargetPrice != nil {
		target, err := decimal.NewFromString(*input.Body.TargetPrice)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid target_price: " + err.Error())
		}
		patch.TargetPrice = &target
	}
	if input.Body.CheckInterval != nil {
		interval, err := parseInterval(*input.Body.CheckInterval)
		if err != nil {
			return nil, err
		}
		patch.CheckInterval = &interval
	}
	patch.Active = input.Body.Active

	t, err := h.svc.UpdateTracker(ctx, input.ID, patch)
	if err != nil {
		return nil, apiError("updating tracker", err)
	}
	return &TrackerOutput{Body: t}, nil
}

// Delete removes a tracker.
func (h *TrackerHandler) Delete(ctx context.Context, input *TrackerIDInput) (*struct{}, error) {
	if err := h.svc.DeleteTracker(ctx, input.ID); err != nil {
		return nil, apiError("deleting tracker", err)
	}
	return nil, nil
}

// Check forces an immediate check. A check that ran but failed is reported
// in the body with success=false; only a missing tracker or a stopping
// engine is an HTTP error.
func (h *TrackerHandler) Check(ctx context.Context, input *TrackerIDInput) (*CheckOutput, error) {
	res, err := h.svc.CheckNow(ctx, input.ID)
	if err != nil && (errors.Is(err, store.ErrNotFound) || errors.Is(err, engine.ErrStopping)) {
		return nil, apiError("checking tracker", err)
	}

	resp := &CheckOutput{}
	resp.Body.Success = err == nil && res.Success()
	resp.Body.Outcome = res.Outcome
	resp.Body.Price = res.Price
	resp.Body.Currency = res.Currency
	resp.Body.Notified = res.Notified
	if !res.CheckedAt.IsZero() {
		resp.Body.CheckedAt = &res.CheckedAt
	}
	if err != nil {
		resp.Body.Error = err.Error()
	}
	return resp, nil
}

// History returns recent observations of the tracked product.
func (h *TrackerHandler) History(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	obs, err := h.svc.History(ctx, input.ID, input.Limit)
	if err != nil {
		return nil, apiError("fetching history", err)
	}
	if obs == nil {
		obs = []domain.PriceObservation{}
	}
	return &HistoryOutput{Body: obs}, nil
}

func parseInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, huma.Error400BadRequest("invalid check_interval: " + err.Error())
	}
	return d, nil
}

// RegisterTrackerRoutes registers tracker endpoints with the Huma API.
func RegisterTrackerRoutes(api huma.API, h *TrackerHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-tracker",
		Method:        http.MethodPost,
		Path:          "/api/v1/trackers",
		Summary:       "Track a product",
		Description:   "Starts tracking a product URL. Unknown products are fetched once before the tracker is created.",
		Tags:          []string{"trackers"},
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusBadGateway,
			http.StatusInternalServerError,
		},
	}, h.Add)

	huma.Register(api, huma.Operation{
		OperationID: "list-trackers",
		Method:      http.MethodGet,
		Path:        "/api/v1/trackers",
		Summary:     "List trackers",
		Tags:        []string{"trackers"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "get-tracker",
		Method:      http.MethodGet,
		Path:        "/api/v1/trackers/{id}",
		Summary:     "Get a tracker by ID",
		Tags:        []string{"trackers"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "update-tracker",
		Method:      http.MethodPatch,
		Path:        "/api/v1/trackers/{id}",
		Summary:     "Update a tracker",
		Tags:        []string{"trackers"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tracker",
		Method:        http.MethodDelete,
		Path:          "/api/v1/trackers/{id}",
		Summary:       "Delete a tracker",
		Tags:          []string{"trackers"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "check-tracker",
		Method:      http.MethodPost,
		Path:        "/api/v1/trackers/{id}/check",
		Summary:     "Check a tracker now",
		Description: "Runs one check immediately, or joins the one already in flight.",
		Tags:        []string{"trackers"},
		Errors:      []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, h.Check)

	huma.Register(api, huma.Operation{
		OperationID: "tracker-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/trackers/{id}/history",
		Summary:     "Price history",
		Description: "Returns the most recent observations of the tracked product, newest first.",
		Tags:        []string{"trackers"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.History)
}
