package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/donaldgifford/pricely/internal/config"
	"github.com/donaldgifford/pricely/internal/metrics"
)

var defaultOutOfStock = []string{"out of stock", "sold out", "unavailable", "esgotado", "indisponível"}

// Meta fallbacks, tried in order after the configured selector.
var (
	nameMeta  = []string{`meta[property="og:title"]`, `meta[name="twitter:title"]`}
	priceMeta = []string{
		`meta[property="product:price:amount"]`,
		`meta[property="og:price:amount"]`,
		`meta[itemprop="price"]`,
		`[itemprop="price"]`,
	}
	currencyMeta = []string{
		`meta[property="product:price:currency"]`,
		`meta[property="og:price:currency"]`,
		`meta[itemprop="priceCurrency"]`,
	}
	availabilityMeta = []string{
		`meta[property="product:availability"]`,
		`meta[property="og:availability"]`,
		`link[itemprop="availability"]`,
		`meta[itemprop="availability"]`,
	}
	imageMeta       = []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`}
	descriptionMeta = []string{`meta[property="og:description"]`, `meta[name="description"]`}
)

// PageAdapter reads product pages of one configured site. It carries no
// site-specific logic; everything comes from config.SourceConfig.
type PageAdapter struct {
	name       string
	hosts      map[string]struct{}
	path       *regexp.Regexp
	productID  *regexp.Regexp
	currency   string
	outOfStock []string
	sel        config.SelectorConfig

	renderer Renderer
	limiter  *RateLimiter
	log      *slog.Logger
}

// PageAdapterOption configures a PageAdapter.
type PageAdapterOption func(*PageAdapter)

// WithRenderer overrides the renderer chosen from config.
func WithRenderer(r Renderer) PageAdapterOption {
	return func(p *PageAdapter) {
		p.renderer = r
	}
}

// WithPageLogger sets a custom logger.
func WithPageLogger(l *slog.Logger) PageAdapterOption {
	return func(p *PageAdapter) {
		p.log = l
	}
}

// NewPageAdapter builds an adapter from a source config entry. Browser
// rendering uses the shared renderer passed in browser; it may be nil when
// no source needs it.
func NewPageAdapter(
	cfg config.SourceConfig,
	browser Renderer,
	opts ...PageAdapterOption,
) (*PageAdapter, error) {
	p := &PageAdapter{
		name:       cfg.Name,
		hosts:      make(map[string]struct{}, len(cfg.Hosts)),
		currency:   strings.ToUpper(cfg.Currency),
		outOfStock: defaultOutOfStock,
		sel:        cfg.Selectors,
		limiter:    NewRateLimiter(cfg.Name, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		log:        slog.Default(),
	}
	for _, h := range cfg.Hosts {
		p.hosts[strings.ToLower(strings.TrimPrefix(h, "www."))] = struct{}{}
	}
	if cfg.OutOfStockText != "" {
		p.outOfStock = []string{strings.ToLower(cfg.OutOfStockText)}
	}

	var err error
	if cfg.PathPattern != "" {
		if p.path, err = regexp.Compile(cfg.PathPattern); err != nil {
			return nil, fmt.Errorf("compiling path pattern for %s: %w", cfg.Name, err)
		}
	}
	if cfg.ProductIDPattern != "" {
		if p.productID, err = regexp.Compile(cfg.ProductIDPattern); err != nil {
			return nil, fmt.Errorf("compiling product id pattern for %s: %w", cfg.Name, err)
		}
	}

	switch cfg.Render {
	case config.RenderBrowser:
		if browser == nil {
			return nil, fmt.Errorf("source %s: %w", cfg.Name, ErrBrowserUnavailable)
		}
		p.renderer = browser
	default:
		p.renderer = NewHTTPRenderer(cfg.Timeout, WithUserAgent(cfg.UserAgent))
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the source tag stored on products.
func (p *PageAdapter) Name() string {
	return p.name
}

// Supports matches the URL host, ignoring a leading "www.", and the
// optional path pattern.
func (p *PageAdapter) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if _, ok := p.hosts[host]; !ok {
		return false
	}
	if p.path != nil && !p.path.MatchString(u.Path) {
		return false
	}
	return true
}

// Fetch waits for the rate limiter, renders the page and extracts a snapshot.
func (p *PageAdapter) Fetch(ctx context.Context, rawURL string) (*Snapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := p.renderer.Render(ctx, rawURL)
	metrics.SourceFetchDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchErrorsTotal.WithLabelValues(p.name).Inc()
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	snap, err := p.extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", rawURL, err)
	}
	if p.productID != nil {
		snap.ExternalID = matchID(p.productID, rawURL)
	}

	p.log.Debug("page fetched",
		"source", p.name,
		"url", rawURL,
		"price", snap.Price.String(),
		"currency", snap.Currency,
	)
	return snap, nil
}

func (p *PageAdapter) extract(doc *goquery.Document) (*Snapshot, error) {
	snap := &Snapshot{
		Name:        lookup(doc, p.sel.Name, nameMeta),
		ImageURL:    lookup(doc, p.sel.Image, imageMeta),
		Description: lookup(doc, p.sel.Description, descriptionMeta),
		Available:   true,
	}
	if snap.Name == "" {
		snap.Name = strings.TrimSpace(doc.Find("title").First().Text())
	}

	priceText := lookup(doc, p.sel.Price, priceMeta)
	if priceText == "" {
		return nil, ErrNoPrice
	}
	price, currency, err := ParsePrice(priceText)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNoPrice, priceText, err)
	}
	snap.Price = price

	if c := lookup(doc, p.sel.Currency, currencyMeta); c != "" {
		currency = c
	}
	if currency == "" {
		currency = p.currency
	}
	snap.Currency = strings.ToUpper(currency)

	if avail := lookup(doc, p.sel.Availability, availabilityMeta); avail != "" {
		snap.Available = !p.soldOut(avail)
	}
	return snap, nil
}

func (p *PageAdapter) soldOut(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "outofstock") || strings.Contains(lower, "soldout") {
		return true
	}
	for _, marker := range p.outOfStock {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// lookup returns the first non-empty value from the configured selector
// followed by the fallbacks. Meta and link elements yield their content or
// href attribute; other elements their text.
func lookup(doc *goquery.Document, selector string, fallbacks []string) string {
	candidates := fallbacks
	if selector != "" {
		candidates = append([]string{selector}, fallbacks...)
	}
	for _, s := range candidates {
		if v := value(doc.Find(s).First()); v != "" {
			return v
		}
	}
	return ""
}

func value(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	switch goquery.NodeName(s) {
	case "meta":
		return strings.TrimSpace(s.AttrOr("content", ""))
	case "link":
		return strings.TrimSpace(s.AttrOr("href", ""))
	}
	if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.Join(strings.Fields(s.Text()), " ")
}

func matchID(re *regexp.Regexp, rawURL string) string {
	m := re.FindStringSubmatch(rawURL)
	switch {
	case m == nil:
		return ""
	case len(m) > 1:
		return m[1]
	default:
		return m[0]
	}
}
