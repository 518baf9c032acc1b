package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/pricely/internal/metrics"
)

// Channel is a named dispatcher inside a MultiDispatcher.
type Channel struct {
	Name       string
	Dispatcher Dispatcher
}

// MultiDispatcher delivers every message to all channels in order. One
// channel failing does not stop the others.
type MultiDispatcher struct {
	channels []Channel
	log      *slog.Logger
}

// NewMultiDispatcher fans out to the given channels.
func NewMultiDispatcher(log *slog.Logger, channels ...Channel) *MultiDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &MultiDispatcher{channels: channels, log: log}
}

// Len returns the number of channels.
func (m *MultiDispatcher) Len() int {
	return len(m.channels)
}

// Deliver sends to each channel and joins the failures.
func (m *MultiDispatcher) Deliver(ctx context.Context, msg *Message) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Dispatcher.Deliver(ctx, msg); err != nil {
			metrics.DeliveryFailuresTotal.WithLabelValues(ch.Name).Inc()
			m.log.Warn("delivery failed",
				"channel", ch.Name,
				"tracker", msg.TrackerID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}
