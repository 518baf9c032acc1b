package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/pricely/internal/api/handlers"
	"github.com/donaldgifford/pricely/internal/engine"
	"github.com/donaldgifford/pricely/internal/source"
	"github.com/donaldgifford/pricely/internal/store"
	"github.com/donaldgifford/pricely/internal/tracking"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

func sampleDetail() *domain.TrackerDetail {
	return &domain.TrackerDetail{
		Tracker: domain.Tracker{
			ID:            "t1",
			UserID:        "u1",
			ProductID:     "p1",
			TargetPrice:   decimal.RequireFromString("99.99"),
			Active:        true,
			CheckInterval: time.Hour,
		},
		Product: domain.Product{ID: "p1", URL: "https://shop.example.com/p/1", Name: "Widget"},
	}
}

func newTrackerAPI(t *testing.T, svc *mockTrackerProvider) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	handlers.RegisterTrackerRoutes(api, handlers.NewTrackerHandler(svc))
	return api
}

func TestAddTracker(t *testing.T) {
	t.Parallel()

	valid := map[string]any{
		"user_id":        "u1",
		"url":            "https://shop.example.com/p/1",
		"target_price":   "99.99",
		"check_interval": "30m",
	}

	tests := []struct {
		name       string
		body       map[string]any
		svcErr     error
		wantStatus int
	}{
		{name: "created", body: valid, wantStatus: http.StatusCreated},
		{
			name:       "unsupported source",
			body:       valid,
			svcErr:     fmt.Errorf("%w: https://elsewhere.example", source.ErrUnsupportedSource),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "first fetch failed",
			body:       valid,
			svcErr:     fmt.Errorf("%w: timeout", tracking.ErrCouldNotAdd),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unknown user",
			body:       valid,
			svcErr:     fmt.Errorf("loading user: %w", store.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "interval too short",
			body:       valid,
			svcErr:     fmt.Errorf("%w: check interval must be at least 1m0s", tracking.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad target price",
			body: map[string]any{
				"user_id":      "u1",
				"url":          "https://shop.example.com/p/1",
				"target_price": "cheap",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad interval",
			body: map[string]any{
				"user_id":        "u1",
				"url":            "https://shop.example.com/p/1",
				"target_price":   "10",
				"check_interval": "hourly",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing url",
			body:       map[string]any{"user_id": "u1", "target_price": "10"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockTrackerProvider{detail: sampleDetail(), err: tt.svcErr}
			api := newTrackerAPI(t, svc)

			resp := api.Post("/api/v1/trackers", tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
		})
	}
}

func TestAddTracker_ParsesInput(t *testing.T) {
	t.Parallel()

	svc := &mockTrackerProvider{detail: sampleDetail()}
	api := newTrackerAPI(t, svc)

	resp := api.Post("/api/v1/trackers", map[string]any{
		"user_id":        "u1",
		"url":            "https://shop.example.com/p/1",
		"target_price":   "99.99",
		"check_interval": "30m",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	assert.Equal(t, "u1", svc.gotAdd.UserID)
	assert.True(t, svc.gotAdd.TargetPrice.Equal(decimal.RequireFromString("99.99")))
	assert.Equal(t, 30*time.Minute, svc.gotAdd.CheckInterval)
	assert.Contains(t, resp.Body.String(), `"name":"Widget"`)
}

func TestListTrackers(t *testing.T) {
	t.Parallel()

	t.Run("filters by user", func(t *testing.T) {
		t.Parallel()

		svc := &mockTrackerProvider{trackers: []domain.Tracker{sampleDetail().Tracker}}
		api := newTrackerAPI(t, svc)

		resp := api.Get("/api/v1/trackers?user_id=u1")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "u1", svc.gotUserID)
		assert.Contains(t, resp.Body.String(), `"id":"t1"`)
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()

		api := newTrackerAPI(t, &mockTrackerProvider{})

		resp := api.Get("/api/v1/trackers")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `[]`, resp.Body.String())
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		api := newTrackerAPI(t, &mockTrackerProvider{err: errors.New("db error")})

		resp := api.Get("/api/v1/trackers")
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Contains(t, resp.Body.String(), "listing trackers failed")
	})
}

func TestGetTracker(t *testing.T) {
	t.Parallel()

	svc := &mockTrackerProvider{detail: sampleDetail()}
	api := newTrackerAPI(t, svc)

	resp := api.Get("/api/v1/trackers/t1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "t1", svc.gotID)
	assert.Contains(t, resp.Body.String(), `"product"`)

	missing := newTrackerAPI(t, &mockTrackerProvider{err: store.ErrNotFound})
	resp = missing.Get("/api/v1/trackers/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateTracker(t *testing.T) {
	t.Parallel()

	t.Run("applies patch", func(t *testing.T) {
		t.Parallel()

		tr := sampleDetail().Tracker
		svc := &mockTrackerProvider{tracker: &tr}
		api := newTrackerAPI(t, svc)

		resp := api.Patch("/api/v1/trackers/t1", map[string]any{
			"target_price":   "80",
			"active":         false,
			"check_interval": "2h",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		require.NotNil(t, svc.gotPatch.TargetPrice)
		assert.True(t, svc.gotPatch.TargetPrice.Equal(decimal.NewFromInt(80)))
		require.NotNil(t, svc.gotPatch.Active)
		assert.False(t, *svc.gotPatch.Active)
		require.NotNil(t, svc.gotPatch.CheckInterval)
		assert.Equal(t, 2*time.Hour, *svc.gotPatch.CheckInterval)
	})

	t.Run("omitted fields stay nil", func(t *testing.T) {
		t.Parallel()

		tr := sampleDetail().Tracker
		svc := &mockTrackerProvider{tracker: &tr}
		api := newTrackerAPI(t, svc)

		resp := api.Patch("/api/v1/trackers/t1", map[string]any{"active": true})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Nil(t, svc.gotPatch.TargetPrice)
		assert.Nil(t, svc.gotPatch.CheckInterval)
	})

	t.Run("bad target price", func(t *testing.T) {
		t.Parallel()

		api := newTrackerAPI(t, &mockTrackerProvider{})

		resp := api.Patch("/api/v1/trackers/t1", map[string]any{"target_price": "free"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestDeleteTracker(t *testing.T) {
	t.Parallel()

	svc := &mockTrackerProvider{}
	api := newTrackerAPI(t, svc)

	resp := api.Delete("/api/v1/trackers/t1")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.True(t, svc.deleteCall)
	assert.Equal(t, "t1", svc.gotID)

	missing := newTrackerAPI(t, &mockTrackerProvider{err: store.ErrNotFound})
	resp = missing.Delete("/api/v1/trackers/t1")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCheckTracker(t *testing.T) {
	t.Parallel()

	price := decimal.RequireFromString("95.00")

	tests := []struct {
		name       string
		result     engine.CheckResult
		err        error
		wantStatus int
		wantBody   []string
	}{
		{
			name: "success",
			result: engine.CheckResult{
				TrackerID: "t1",
				Outcome:   "success",
				Price:     &price,
				Currency:  "USD",
				Notified:  true,
				CheckedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"success":true`, `"notified":true`, `"outcome":"success"`, `"checked_at"`},
		},
		{
			name:       "fetch failure is a failed check",
			result:     engine.CheckResult{TrackerID: "t1", Outcome: "fetch_error"},
			err:        fmt.Errorf("%w: timeout", engine.ErrFetch),
			wantStatus: http.StatusOK,
			wantBody:   []string{`"success":false`, `"outcome":"fetch_error"`, `"error":"fetching snapshot: timeout"`},
		},
		{
			name:       "unknown tracker",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "engine stopping",
			result:     engine.CheckResult{TrackerID: "t1", Outcome: "abandoned"},
			err:        engine.ErrStopping,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := newTrackerAPI(t, &mockTrackerProvider{result: tt.result, err: tt.err})

			resp := api.Post("/api/v1/trackers/t1/check")
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			for _, want := range tt.wantBody {
				assert.Contains(t, resp.Body.String(), want)
			}
		})
	}
}

func TestTrackerHistory(t *testing.T) {
	t.Parallel()

	t.Run("default limit", func(t *testing.T) {
		t.Parallel()

		svc := &mockTrackerProvider{history: []domain.PriceObservation{
			{ID: "o1", ProductID: "p1", Price: decimal.NewFromInt(100), Currency: "USD"},
		}}
		api := newTrackerAPI(t, svc)

		resp := api.Get("/api/v1/trackers/t1/history")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 30, svc.gotLimit)
		assert.Contains(t, resp.Body.String(), `"id":"o1"`)
	})

	t.Run("explicit limit", func(t *testing.T) {
		t.Parallel()

		svc := &mockTrackerProvider{}
		api := newTrackerAPI(t, svc)

		resp := api.Get("/api/v1/trackers/t1/history?limit=5")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, 5, svc.gotLimit)
		assert.JSONEq(t, `[]`, resp.Body.String())
	})

	t.Run("limit out of range", func(t *testing.T) {
		t.Parallel()

		api := newTrackerAPI(t, &mockTrackerProvider{})

		resp := api.Get("/api/v1/trackers/t1/history?limit=0")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}
