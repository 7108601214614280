// internal/tenant/cache.go
//
// Outcome cache for subdomain resolution.
//
// Context
// -------
// One cache slot per subdomain holds whichever outcome the last store
// round trip produced: the tenant record, a confirmed absence, or a
// lookup error.  Each entry carries its own absolute expiry so positive
// outcomes can live for minutes while negative and error outcomes expire
// within seconds, bounding staleness after transient failures.
//
// Expired entries behave as misses on read; they are not served stale.
// A background sweep (see SweepLoop) removes them so the map does not
// grow between requests, but correctness never depends on the sweep.
//
// Tenant counts are small, so there is no LRU pressure handling here, and
// the cache is not persisted across restarts—the resolver always falls
// through to the store on a cold miss.
package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/yanizio/gateway/internal/metrics"
)

// OutcomeKind tags what a cached resolution produced.
type OutcomeKind int

const (
	OutcomeFound OutcomeKind = iota
	OutcomeNotFound
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Outcome is one resolution result.  Record is non-nil only for
// OutcomeFound.
type Outcome struct {
	Kind   OutcomeKind
	Record *Record
}

type cacheEntry struct {
	out       Outcome
	expiresAt time.Time
}

// Cache maps subdomain → resolution outcome with per-entry expiry.  The
// lookup-expire-update sequence on one key is a critical section under
// concurrent requests for the same subdomain, so a single mutex guards
// the map; contention is low because hits hold it for nanoseconds.
type Cache struct {
	mu  sync.Mutex
	m   map[string]cacheEntry
	now func() time.Time
}

// NewCache returns a Cache on the wall clock.
func NewCache() *Cache { return NewCacheWithClock(time.Now) }

// NewCacheWithClock lets tests advance time deterministically.
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{m: make(map[string]cacheEntry), now: now}
}

// Get returns the outcome for subdomain if present and unexpired.
// Expired entries are deleted lazily and reported as a miss.
func (c *Cache) Get(subdomain string) (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.m[subdomain]
	if !ok {
		return Outcome{}, false
	}
	if !c.now().Before(ent.expiresAt) {
		delete(c.m, subdomain)
		metrics.CachedOutcomes.Set(float64(len(c.m)))
		return Outcome{}, false
	}
	return ent.out, true
}

// Put stores an outcome with expiry now+ttl, overwriting any previous
// entry for the subdomain.
func (c *Cache) Put(subdomain string, out Outcome, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m[subdomain] = cacheEntry{out: out, expiresAt: c.now().Add(ttl)}
	metrics.CachedOutcomes.Set(float64(len(c.m)))
}

// Len reports the number of cached outcomes, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// SweepLoop removes expired entries every interval until ctx is done.
// Run it from main as `go cache.SweepLoop(ctx, time.Minute)`.
func (c *Cache) SweepLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for sub, ent := range c.m {
		if !now.Before(ent.expiresAt) {
			delete(c.m, sub)
		}
	}
	metrics.CachedOutcomes.Set(float64(len(c.m)))
}
