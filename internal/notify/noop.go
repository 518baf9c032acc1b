package notify

import (
	"context"
	"log/slog"
)

// NoOpDispatcher implements Dispatcher by logging discarded messages. It is
// used when no delivery channel is configured.
type NoOpDispatcher struct {
	log *slog.Logger
}

// NewNoOpDispatcher creates a dispatcher that discards messages with a log line.
func NewNoOpDispatcher(log *slog.Logger) *NoOpDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &NoOpDispatcher{log: log}
}

// Deliver logs and discards the message.
func (n *NoOpDispatcher) Deliver(_ context.Context, msg *Message) error {
	n.log.Debug("notification discarded (no channel configured)",
		"user", msg.Recipient.UserID,
		"tracker", msg.TrackerID,
		"subject", msg.Subject,
	)
	return nil
}
