package scoring

import (
	"sync"
	"sync/atomic"
)

// Registry publishes the current Config snapshot. Readers never block; writers are serialized.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[Config]
}

// NewRegistry seeds the registry with an initial snapshot.
func NewRegistry(initial *Config) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Current returns the active snapshot.
func (r *Registry) Current() *Config {
	return r.current.Load()
}

// Update applies fn to the current snapshot and publishes the result when fn succeeds.
func (r *Registry) Update(fn func(*Config) (*Config, error)) (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := fn(r.current.Load())
	if err != nil {
		return nil, err
	}
	r.current.Store(next)
	return next, nil
}
