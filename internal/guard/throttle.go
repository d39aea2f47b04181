package guard

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is a per-key token bucket for raw inbound requests. It is separate
// from the durable operation window and resets on restart.
type Throttle struct {
	limiters   map[string]*throttleEntry
	mu         sync.Mutex
	rateLimit  rate.Limit
	burstLimit int
	now        func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle creates a Throttle allowing ratePerSecond with the given burst.
func NewThrottle(ratePerSecond float64, burst int) *Throttle {
	return &Throttle{
		limiters:   make(map[string]*throttleEntry),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
		now:        time.Now,
	}
}

// DefaultThrottle allows 1 request per second with a burst of 5.
func DefaultThrottle() *Throttle {
	return NewThrottle(1, 5)
}

// Allow reports whether a request for key may proceed now.
func (t *Throttle) Allow(key string) bool {
	return t.get(key).Allow()
}

// Wait blocks until a request for key may proceed or ctx is done.
func (t *Throttle) Wait(ctx context.Context, key string) error {
	return t.get(key).Wait(ctx)
}

// Prune forgets keys idle for longer than idle and returns how many.
func (t *Throttle) Prune(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idle)
	n := 0
	for key, e := range t.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(t.limiters, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

func (t *Throttle) get(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.limiters[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.rateLimit, t.burstLimit)}
		t.limiters[key] = e
	}
	e.lastSeen = t.now()
	return e.limiter
}
