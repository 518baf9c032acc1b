// Package main implements a mock shop for local development. It serves
// product pages carrying Open Graph price tags from a JSON catalog, and
// lets prices be changed at runtime so a tracker can be driven across its
// target without a real storefront.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

type product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Price       string `json:"price"`
	Available   bool   `json:"available"`
}

type catalog struct {
	Currency string    `json:"currency"`
	Products []product `json:"products"`
}

// shop holds the mutable catalog.
type shop struct {
	mu       sync.RWMutex
	currency string
	products map[string]product
	log      *slog.Logger
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head>
<title>{{.Name}}</title>
<meta property="og:title" content="{{.Name}}">
{{- if .Description}}
<meta property="og:description" content="{{.Description}}">
{{- end}}
{{- if .Image}}
<meta property="og:image" content="{{.Image}}">
{{- end}}
<meta property="og:price:amount" content="{{.Price}}">
<meta property="og:price:currency" content="{{.Currency}}">
<meta property="og:availability" content="{{if .Available}}instock{{else}}outofstock{{end}}">
</head>
<body><h1>{{.Name}}</h1><p>{{.Price}} {{.Currency}}</p></body>
</html>
`))

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	catalogFile := flag.String("catalog", "tools/mock-server/testdata/catalog.json", "path to product catalog")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := loadCatalog(*catalogFile)
	if err != nil {
		logger.Error("failed to load catalog", "path", *catalogFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded catalog", "products", len(c.Products))

	s := newShop(c, logger)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock shop", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, s.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadCatalog(path string) (*catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // catalog path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	return &c, nil
}

func newShop(c *catalog, logger *slog.Logger) *shop {
	s := &shop{
		currency: c.Currency,
		products: make(map[string]product, len(c.Products)),
		log:      logger,
	}
	for _, p := range c.Products {
		s.products[p.ID] = p
	}
	return s
}

func (s *shop) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/{id}", s.pageHandler)
	mux.HandleFunc("PUT /products/{id}/price", s.priceHandler)
	return mux
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *shop) pageHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p, ok := s.products[r.PathValue("id")]
	currency := s.currency
	s.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	pageTemplate.Execute(w, struct {
		product
		Currency string
	}{p, currency})
}

// priceHandler accepts {"price": "...", "available": bool} and updates the
// product in place.
func (s *shop) priceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price     string `json:"price"`
		Available *bool  `json:"available,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Price == "" {
		http.Error(w, "body must carry a price", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	p, ok := s.products[id]
	if ok {
		p.Price = req.Price
		if req.Available != nil {
			p.Available = *req.Available
		}
		s.products[id] = p
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	s.log.Info("price changed", "product", id, "price", req.Price)
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(p)
}
