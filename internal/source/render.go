package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes     = 8 << 20
)

// Renderer turns a URL into an HTML document.
type Renderer interface {
	Render(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPRenderer fetches pages with a plain GET request.
type HTTPRenderer struct {
	client    *http.Client
	userAgent string
}

// HTTPRendererOption configures an HTTPRenderer.
type HTTPRendererOption func(*HTTPRenderer)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		r.client = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// NewHTTPRenderer returns a renderer whose client gives up after timeout.
func NewHTTPRenderer(timeout time.Duration, opts ...HTTPRendererOption) *HTTPRenderer {
	r := &HTTPRenderer{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render performs the GET and returns the body of a 200 response.
func (r *HTTPRenderer) Render(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	return body, nil
}
