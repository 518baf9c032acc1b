// Package notify delivers price alerts to users over external channels.
package notify

import (
	"context"
)

// Recipient is the contact a message is addressed to.
type Recipient struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Message is one rendered alert. Subject and Body are channel-neutral text;
// the remaining fields let rich channels build their own layout.
type Message struct {
	Recipient      Recipient `json:"recipient"`
	NotificationID string    `json:"notification_id"`
	TrackerID      string    `json:"tracker_id"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	ProductName    string    `json:"product_name"`
	ProductURL     string    `json:"product_url"`
	ImageURL       string    `json:"image_url,omitempty"`
	Price          string    `json:"price"`
	TargetPrice    string    `json:"target_price"`
	Currency       string    `json:"currency"`
}

// Dispatcher sends a message to its recipient. Delivery is best effort;
// callers log and count failures but never undo the stored notification.
type Dispatcher interface {
	Deliver(ctx context.Context, msg *Message) error
}
