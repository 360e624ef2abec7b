package breaker

import (
	"sync"
	"time"
)

// Registry hands out one Breaker per key, lazily, so callers (AgentRouter,
// RecipeStore) don't need to pre-declare the key space.
type Registry struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	breakers  map[string]*Breaker
}

// NewRegistry creates a Registry whose Breakers all share the given threshold
// and cooldown.
func NewRegistry(threshold int, cooldown time.Duration) *Registry {
	return &Registry{
		threshold: threshold,
		cooldown:  cooldown,
		breakers:  make(map[string]*Breaker),
	}
}

// For returns the Breaker for key, creating it on first use.
func (r *Registry) For(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = New(r.threshold, r.cooldown)
		r.breakers[key] = b
	}
	return b
}
