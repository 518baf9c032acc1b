package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoOpDispatcher_Deliver(t *testing.T) {
	t.Parallel()

	n := NewNoOpDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, n.Deliver(context.Background(), testMessage()))
}

// compile-time interface checks.
var (
	_ Dispatcher = (*NoOpDispatcher)(nil)
	_ Dispatcher = (*DiscordDispatcher)(nil)
	_ Dispatcher = (*EmailDispatcher)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
	_ Dispatcher = (*MultiDispatcher)(nil)
)
