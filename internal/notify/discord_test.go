package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *Message {
	return &Message{
		Recipient:      Recipient{UserID: "u1", Username: "alice", Email: "alice@example.com"},
		NotificationID: "n1",
		TrackerID:      "t1",
		Subject:        "Price alert: Widget Pro",
		Body:           "Widget Pro is now 95.00 USD (target 100.00 USD).",
		ProductName:    "Widget Pro",
		ProductURL:     "https://shop.example.com/p/1",
		ImageURL:       "https://cdn.example.com/w.png",
		Price:          "95.00",
		TargetPrice:    "100.00",
		Currency:       "USD",
	}
}

func TestDiscordDispatcher_Deliver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
		errMsg     string
	}{
		{name: "valid alert sends embed", statusCode: http.StatusNoContent},
		{name: "discord returns 429 rate limited", statusCode: http.StatusTooManyRequests, wantErr: true, errMsg: "rate limited"},
		{name: "discord returns 400 error", statusCode: http.StatusBadRequest, wantErr: true, errMsg: "discord returned 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received discordWebhookPayload
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			d := NewDiscordDispatcher(srv.URL, WithHTTPClient(srv.Client()))
			err := d.Deliver(context.Background(), testMessage())

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.Len(t, received.Embeds, 1)

			embed := received.Embeds[0]
			assert.Equal(t, "Price alert: Widget Pro", embed.Title)
			assert.Equal(t, "https://shop.example.com/p/1", embed.URL)
			assert.Equal(t, colorGreen, embed.Color)
			require.NotNil(t, embed.Thumbnail)
			assert.Equal(t, "https://cdn.example.com/w.png", embed.Thumbnail.URL)
			require.Len(t, embed.Fields, 2)
			assert.Equal(t, "95.00 USD", embed.Fields[0].Value)
			assert.Equal(t, "Price alert for alice", received.Content)
		})
	}
}

func TestBuildEmbed_TruncatesLongBody(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	msg.Body = strings.Repeat("x", embedLimit+100)
	msg.ImageURL = ""

	embed := buildEmbed(msg)
	assert.Len(t, embed.Description, embedLimit)
	assert.Nil(t, embed.Thumbnail)
}

func TestDiscordDispatcher_NetworkError(t *testing.T) {
	t.Parallel()

	d := NewDiscordDispatcher("http://127.0.0.1:1")
	err := d.Deliver(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending discord webhook")
}
