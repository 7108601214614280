// internal/ratelimit/limiter.go
//
// In-memory fixed-window rate limiter.
//
// Context
// -------
// Fixed-window counting was chosen over sliding windows and token buckets
// on purpose: O(1) memory per client, trivial reasoning, and the window
// reset timestamp falls straight out for the Retry-After header.  The
// known tradeoff is a boundary burst of up to 2× the limit across a
// window edge; that is an accepted approximation, not a bug.
//
// Records are keyed by client identity alone.  There is no cross-process
// coordination: the gateway runs per instance, and multi-instance
// deployments under-enforce proportionally to instance count.  Documented
// limitation, not solved here.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks one fixed window per client identity.  Safe for
// concurrent use; the read-expire-increment sequence per key runs under
// one mutex, which is cheap at the contention levels a single gateway
// instance sees.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*window
	now func() time.Time
}

// New returns a Limiter on the wall clock.
func New() *Limiter { return NewWithClock(time.Now) }

// NewWithClock lets tests advance time deterministically.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{m: make(map[string]*window), now: now}
}

// Check consumes one request unit for identity under policy and reports
// whether it is permitted.  An expired window is discarded and a fresh
// one started; a denied call never increments the counter.
func (l *Limiter) Check(identity string, p Policy) Decision {
	now := l.now()

	if p.MaxRequests <= 0 {
		// Unlimited policy: do not even touch the map.
		return Decision{Allowed: true, ResetAt: now.Add(p.Window)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.m[identity]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(p.Window)}
		l.m[identity] = w
	}

	if w.count >= p.MaxRequests {
		return Decision{Allowed: false, Limit: p.MaxRequests, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     p.MaxRequests,
		Remaining: p.MaxRequests - w.count,
		ResetAt:   w.resetAt,
	}
}

// Len reports the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// SweepLoop drops expired windows every interval until ctx is done, so
// one-off clients do not accumulate forever.  Expiry on read keeps the
// limiter correct without it.
func (l *Limiter) SweepLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, w := range l.m {
		if now.After(w.resetAt) {
			delete(l.m, id)
		}
	}
}
