package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	colorGreen = 0x2ECC71
	embedLimit = 4096
)

// DiscordDispatcher posts alerts to a Discord webhook as embeds.
type DiscordDispatcher struct {
	webhookURL string
	client     *http.Client
}

// DiscordOption configures a DiscordDispatcher.
type DiscordOption func(*DiscordDispatcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordDispatcher) {
		d.client = c
	}
}

// NewDiscordDispatcher creates a new DiscordDispatcher.
func NewDiscordDispatcher(webhookURL string, opts ...DiscordOption) *DiscordDispatcher {
	d := &DiscordDispatcher{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordThumbnail   `json:"thumbnail,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

// Deliver posts the message as a single embed.
func (d *DiscordDispatcher) Deliver(ctx context.Context, msg *Message) error {
	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(msg)},
	}
	if msg.Recipient.Username != "" {
		payload.Content = "Price alert for " + msg.Recipient.Username
	}
	return d.post(ctx, payload)
}

func buildEmbed(msg *Message) discordEmbed {
	desc := msg.Body
	if len(desc) > embedLimit {
		desc = desc[:embedLimit]
	}

	embed := discordEmbed{
		Title:       msg.Subject,
		URL:         msg.ProductURL,
		Color:       colorGreen,
		Description: desc,
		Fields: []discordEmbedField{
			{Name: "Price", Value: msg.Price + " " + msg.Currency, Inline: true},
			{Name: "Target", Value: msg.TargetPrice + " " + msg.Currency, Inline: true},
		},
	}
	if msg.ImageURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: msg.ImageURL}
	}
	return embed
}

func (d *DiscordDispatcher) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
