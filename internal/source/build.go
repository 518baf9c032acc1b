package source

import (
	"fmt"
	"log/slog"

	"github.com/donaldgifford/pricely/internal/config"
)

// FromConfig builds a registry holding one PageAdapter per configured
// source, in config order. The returned BrowserRenderer is non-nil only
// when some source renders in a browser; the caller closes it.
func FromConfig(sources []config.SourceConfig, log *slog.Logger) (*Registry, *BrowserRenderer, error) {
	if log == nil {
		log = slog.Default()
	}

	var browser *BrowserRenderer
	reg := NewRegistry()

	for i := range sources {
		cfg := sources[i]

		var r Renderer
		if cfg.Render == config.RenderBrowser {
			if browser == nil {
				browser = NewBrowserRenderer(cfg.Timeout, log)
			}
			r = browser
		}

		a, err := NewPageAdapter(cfg, r, WithPageLogger(log))
		if err != nil {
			return nil, browser, fmt.Errorf("building source %s: %w", cfg.Name, err)
		}
		reg.Register(a)
		log.Info("source registered", "source", cfg.Name, "hosts", cfg.Hosts, "render", cfg.Render)
	}

	return reg, browser, nil
}
