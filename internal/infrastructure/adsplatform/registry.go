package adsplatform

import (
	"sync"

	"github.com/adhub/backend/internal/domain/integration"
)

// Registry is the in-memory adapter registry. Adapters are registered once at
// startup; lookups are concurrent.
type Registry struct {
	mu       sync.RWMutex
	adapters map[integration.ProviderType]integration.ProviderAdapter
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(adapters ...integration.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[integration.ProviderType]integration.ProviderAdapter)}
	for _, adapter := range adapters {
		r.Register(adapter)
	}
	return r
}

// Register adds or replaces the adapter for its provider type
func (r *Registry) Register(adapter integration.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.ProviderType()] = adapter
}

// Get returns the adapter for the provider type
func (r *Registry) Get(provider integration.ProviderType) (integration.ProviderAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, integration.ErrAdapterNotRegistered
	}
	return adapter, nil
}

// List returns all registered adapters
func (r *Registry) List() []integration.ProviderAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]integration.ProviderAdapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		out = append(out, adapter)
	}
	return out
}

// Ensure Registry implements AdapterRegistry interface
var _ integration.AdapterRegistry = (*Registry)(nil)
