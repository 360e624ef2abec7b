// Package breaker implements a per-key circuit breaker shared by the
// AgentRouter (keyed on agent id) and the RecipeStore (keyed on host plus
// endpoint class), unifying what the teacher and the recipe-fetch path used
// to duplicate as two ad-hoc retry loops.
package breaker

import (
	"sync"
	"time"
)

// DefaultThreshold is the number of consecutive failures before a breaker opens.
const DefaultThreshold = 3

// DefaultCooldown is how long an open breaker waits before permitting a probe.
const DefaultCooldown = 30 * time.Second

// Breaker tracks consecutive failures for a single key and, unlike a manual
// reset breaker, automatically allows one probe attempt once cooldown elapses.
type Breaker struct {
	mu           sync.Mutex
	threshold    int
	cooldown     time.Duration
	failures     int
	open         bool
	probing      bool
	lastFailure  time.Time
	now          func() time.Time
}

// Option configures a Breaker at construction.
type Option func(*Breaker)

// WithNowFunc overrides the time source, for deterministic tests.
func WithNowFunc(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a Breaker with the given threshold and cooldown. Non-positive
// values fall back to the package defaults.
func New(threshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	b := &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed: true when closed, or when open
// but cooldown has elapsed (in which case exactly one concurrent caller is
// granted the probe and the rest are refused until it resolves).
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.probing {
		return false
	}
	if b.now().Sub(b.lastFailure) < b.cooldown {
		return false
	}
	b.probing = true
	return true
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
	b.probing = false
}

// RecordFailure records a failed call. Returns true if this call caused the
// breaker to (re)open.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.probing = false

	if b.failures >= b.threshold && !b.open {
		b.open = true
		return true
	}
	if b.open {
		// Failed probe: stay open, wait another cooldown window.
		return true
	}
	return false
}

// IsOpen reports the current open/closed state without affecting probing.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// ConsecutiveFailures returns the current failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker closed, discarding failure history.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
	b.probing = false
	b.lastFailure = time.Time{}
}
