package client

import (
	"context"
	"fmt"
	"net/url"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// ListNotifications returns a user's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	path := "/api/v1/users/" + url.PathEscape(userID) + "/notifications"
	if unreadOnly {
		path += "?unread=true"
	}

	var ns []domain.Notification
	if err := c.get(ctx, path, &ns); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return ns, nil
}

// MarkNotificationRead flags a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path := "/api/v1/notifications/" + url.PathEscape(id) + "/read"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}
