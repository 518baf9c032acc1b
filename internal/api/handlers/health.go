package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{pinger: p}
}

// HealthOutput is the response for the health endpoints. Status sets the
// HTTP status code.
type HealthOutput struct {
	Status int
	Body   StatusResponse
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	return &HealthOutput{
		Status: http.StatusOK,
		Body:   StatusResponse{Status: "ok"},
	}, nil
}

// Readyz returns 200 if the store is reachable, 503 otherwise.
func (h *HealthHandler) Readyz(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	if err := h.pinger.Ping(ctx); err != nil {
		return &HealthOutput{
			Status: http.StatusServiceUnavailable,
			Body:   StatusResponse{Status: "unavailable"},
		}, nil
	}
	return &HealthOutput{
		Status: http.StatusOK,
		Body:   StatusResponse{Status: "ready"},
	}, nil
}

// RegisterHealthRoutes registers the liveness and readiness probes.
func RegisterHealthRoutes(api huma.API, h *HealthHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "healthz",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness check",
		Tags:        []string{"health"},
	}, h.Healthz)

	huma.Register(api, huma.Operation{
		OperationID: "readyz",
		Method:      http.MethodGet,
		Path:        "/readyz",
		Summary:     "Readiness check",
		Description: "Returns 200 if the store is reachable, 503 otherwise.",
		Tags:        []string{"health"},
		Errors:      []int{http.StatusServiceUnavailable},
	}, h.Readyz)
}
