package source

import (
	"fmt"
	"sync"
)

// Registry resolves URLs to adapters in registration order.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry returns a registry holding the given adapters in order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: append([]Adapter(nil), adapters...)}
}

// Register appends an adapter. Earlier registrations win on overlap.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = append(r.adapters, a)
}

// Supports reports whether any adapter claims the URL.
func (r *Registry) Supports(rawURL string) bool {
	_, err := r.Resolve(rawURL)
	return err == nil
}

// Resolve returns the first adapter whose Supports matches.
func (r *Registry) Resolve(rawURL string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.adapters {
		if a.Supports(rawURL) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, rawURL)
}

// Names returns the registered adapter names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
