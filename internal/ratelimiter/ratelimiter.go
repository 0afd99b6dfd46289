// Package ratelimiter provides token-bucket request rate limiting, keyed by
// client, for the HTTP layer.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate limits requests per client key using the token bucket
// algorithm from golang.org/x/time/rate.
//
// Each key (typically a client IP) gets its own bucket: tokens accrue at the
// sustained rate and the burst size caps how many requests can be served
// back to back. Idle buckets are pruned so the key map does not grow without
// bound.
//
// Thread safety: all methods are safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client

	rps   rate.Limit
	burst int

	// idleTTL is how long an unused bucket survives before pruning.
	idleTTL time.Duration

	lastPrune time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// defaultIdleTTL drops buckets idle for this long.
const defaultIdleTTL = 10 * time.Minute

// New creates a Limiter allowing the given sustained requests-per-second and
// burst per client key.
//
// Special case: rps <= 0 disables limiting entirely; Allow always returns
// true.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		clients:   make(map[string]*client),
		rps:       rate.Limit(rps),
		burst:     burst,
		idleTTL:   defaultIdleTTL,
		lastPrune: time.Now(),
	}
}

// Allow reports whether a request from the given key is allowed right now,
// consuming one token when it is.
func (l *Limiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	l.maybePrune(now)

	return c.limiter.Allow()
}

// maybePrune drops idle buckets. Called with l.mu held, at most once per
// idleTTL so steady-state requests pay nothing.
func (l *Limiter) maybePrune(now time.Time) {
	if now.Sub(l.lastPrune) < l.idleTTL {
		return
	}
	l.lastPrune = now

	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
}

// Len returns the number of tracked client buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
