package client

import (
	"context"
	"fmt"
	"net/url"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// CreateUser registers a user.
func (c *Client) CreateUser(ctx context.Context, username, email string) (*domain.User, error) {
	body := map[string]string{"username": username, "email": email}

	var u domain.User
	if err := c.post(ctx, "/api/v1/users", body, &u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &u, nil
}

// GetUser returns a user by ID.
func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/api/v1/users/"+url.PathEscape(id), &u); err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}
