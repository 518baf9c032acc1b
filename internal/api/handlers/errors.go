package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/pricely/internal/engine"
	"github.com/donaldgifford/pricely/internal/source"
	"github.com/donaldgifford/pricely/internal/store"
	"github.com/donaldgifford/pricely/internal/tracking"
)

// apiError maps a service error onto an HTTP status. op names the failed
// operation in the message, e.g. "adding tracker".
func apiError(op string, err error) error {
	msg := op + " failed: " + err.Error()

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, engine.ErrTrackerGone):
		return huma.Error404NotFound(msg)
	case errors.Is(err, store.ErrConflict):
		return huma.Error409Conflict(msg)
	case errors.Is(err, tracking.ErrInvalidInput):
		return huma.Error400BadRequest(msg)
	case errors.Is(err, source.ErrUnsupportedSource):
		return huma.Error422UnprocessableEntity(msg)
	case errors.Is(err, tracking.ErrCouldNotAdd):
		return huma.Error502BadGateway(msg)
	case errors.Is(err, engine.ErrStopping):
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
