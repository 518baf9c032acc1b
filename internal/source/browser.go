package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrBrowserUnavailable is returned when no Chromium binary can be found.
var ErrBrowserUnavailable = errors.New("headless browser not available")

// BrowserRenderer renders pages in a shared headless Chromium so that
// client-side prices are present in the HTML. The browser is launched on
// first use.
type BrowserRenderer struct {
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserRenderer returns a renderer bounding each page to timeout.
func NewBrowserRenderer(timeout time.Duration, log *slog.Logger) *BrowserRenderer {
	if log == nil {
		log = slog.Default()
	}
	return &BrowserRenderer{timeout: timeout, log: log}
}

func (b *BrowserRenderer) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	path, ok := launcher.LookPath()
	if !ok {
		return nil, ErrBrowserUnavailable
	}
	u, err := launcher.New().Bin(path).Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	b.log.Info("headless browser started", "bin", path)
	b.browser = browser
	return browser, nil
}

// Render loads the page, waits for the load event and returns its HTML.
func (b *BrowserRenderer) Render(ctx context.Context, rawURL string) ([]byte, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	pageCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	page, err := browser.Context(pageCtx).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			b.log.Debug("closing page", "url", rawURL, "error", closeErr)
		}
	}()

	if err := page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("rendering timed out: %w", pageCtx.Err())
		}
		return nil, fmt.Errorf("waiting for page load: %w", err)
	}

	out, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page html: %w", err)
	}
	return []byte(out), nil
}

// Close shuts the browser down if it was started.
func (b *BrowserRenderer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
