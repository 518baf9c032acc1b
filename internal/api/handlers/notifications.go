package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// NotificationProvider defines the service methods required by the
// notifications handler.
type NotificationProvider interface {
	Notifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// NotificationHandler handles notification listing and acknowledgement.
type NotificationHandler struct {
	svc NotificationProvider
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(s NotificationProvider) *NotificationHandler {
	return &NotificationHandler{svc: s}
}

// ListNotificationsInput is the request for a user's notifications.
type ListNotificationsInput struct {
	UserID string `path:"id" doc:"User UUID"`
	Unread bool   `query:"unread" doc:"Only unread notifications"`
}

// ListNotificationsOutput is the response body for notifications, newest
// first.
type ListNotificationsOutput struct {
	Body []domain.Notification
}

// MarkReadInput is the request path for acknowledging a notification.
type MarkReadInput struct {
	ID string `path:"id" doc:"Notification UUID"`
}

// MarkReadOutput is the response body for an acknowledged notification.
type MarkReadOutput struct {
	Body StatusResponse
}

// List returns a user's notifications.
func (h *NotificationHandler) List(
	ctx context.Context,
	input *ListNotificationsInput,
) (*ListNotificationsOutput, error) {
	ns, err := h.svc.Notifications(ctx, input.UserID, input.Unread)
	if err != nil {
		return nil, apiError("listing notifications", err)
	}
	if ns == nil {
		ns = []domain.Notification{}
	}
	return &ListNotificationsOutput{Body: ns}, nil
}

// MarkRead flags a notification as read.
func (h *NotificationHandler) MarkRead(ctx context.Context, input *MarkReadInput) (*MarkReadOutput, error) {
	if err := h.svc.MarkNotificationRead(ctx, input.ID); err != nil {
		return nil, apiError("marking notification read", err)
	}
	return &MarkReadOutput{Body: StatusResponse{Status: "read"}}, nil
}

// RegisterNotificationRoutes registers notification endpoints with the Huma
// API.
func RegisterNotificationRoutes(api huma.API, h *NotificationHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/notifications",
		Summary:     "List a user's notifications",
		Tags:        []string{"notifications"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "mark-notification-read",
		Method:      http.MethodPost,
		Path:        "/api/v1/notifications/{id}/read",
		Summary:     "Mark a notification as read",
		Tags:        []string{"notifications"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.MarkRead)
}
