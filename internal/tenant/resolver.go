// internal/tenant/resolver.go
//
// Subdomain → tenant resolution with outcome caching.
//
// Context
// -------
// The resolver sits on the hot path of every tenant request, so a cache
// hit must answer without touching the store—including cached negative
// and error outcomes, which exist precisely so an outage or a typo'd
// subdomain cannot turn into a store query per request.  Concurrent
// misses for the same subdomain are collapsed through singleflight, the
// same way the old site loader did.
//
// Routing fails closed: a store error resolves to "not found" rather
// than guessing that a tenant exists.
package tenant

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/gateway/internal/metrics"
)

// TTLs carries the per-outcome cache lifetimes.  Error outcomes retry
// sooner than confirmed absences so a transient store failure clears
// quickly without lifting the limit on confirmed-absent churn.
type TTLs struct {
	Positive time.Duration
	Negative time.Duration
	Error    time.Duration
}

// unconfiguredWarnInterval bounds how often a storeless deployment logs
// its warning.  Once per request would flood the log on a busy site.
const unconfiguredWarnInterval = 5 * time.Minute

// Resolver maps a normalized subdomain to a resolution outcome.  A nil
// store is a valid configuration: every subdomain then resolves to
// "not found" without a connection attempt.
type Resolver struct {
	store        Store
	cache        *Cache
	ttl          TTLs
	queryTimeout time.Duration
	sfg          singleflight.Group

	warnMu   sync.Mutex
	lastWarn time.Time
}

// NewResolver wires a resolver.  store may be nil when the control-plane
// DSN is not configured.
func NewResolver(store Store, cache *Cache, ttl TTLs, queryTimeout time.Duration) *Resolver {
	return &Resolver{
		store:        store,
		cache:        cache,
		ttl:          ttl,
		queryTimeout: queryTimeout,
	}
}

// Resolve returns the cached or freshly-loaded outcome for subdomain.
// The caller must have normalized subdomain to lowercase and filtered
// reserved labels; the resolver does not re-check.
func (r *Resolver) Resolve(ctx context.Context, subdomain string) Outcome {
	if r.store == nil {
		r.warnUnconfigured()
		return Outcome{Kind: OutcomeNotFound}
	}

	if out, ok := r.cache.Get(subdomain); ok {
		metrics.CacheHitsTotal.Inc()
		return out
	}
	metrics.CacheMissesTotal.Inc()

	v, _, _ := r.sfg.Do(subdomain, func() (interface{}, error) {
		// Double-check after the singleflight barrier.
		if out, ok := r.cache.Get(subdomain); ok {
			return out, nil
		}
		return r.lookup(ctx, subdomain), nil
	})
	return v.(Outcome)
}

// lookup performs one bounded store round trip and caches the outcome
// with its kind-specific TTL.
func (r *Resolver) lookup(ctx context.Context, subdomain string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rec, err := r.store.BySubdomain(ctx, subdomain)
	switch {
	case err == nil:
		out := Outcome{Kind: OutcomeFound, Record: rec}
		r.cache.Put(subdomain, out, r.ttl.Positive)
		metrics.ResolveTotal.WithLabelValues("found").Inc()
		return out

	case errors.Is(err, ErrNotFound):
		out := Outcome{Kind: OutcomeNotFound}
		r.cache.Put(subdomain, out, r.ttl.Negative)
		metrics.ResolveTotal.WithLabelValues("not_found").Inc()
		return out

	default:
		// Timeouts land here too; context deadline errors are just
		// another flavor of store failure.
		zap.S().Errorw("tenant lookup failed",
			"subdomain", subdomain, "err", err)
		out := Outcome{Kind: OutcomeError}
		r.cache.Put(subdomain, out, r.ttl.Error)
		metrics.ResolveTotal.WithLabelValues("error").Inc()
		return out
	}
}

// warnUnconfigured logs the missing-store warning at most once per
// interval.
func (r *Resolver) warnUnconfigured() {
	r.warnMu.Lock()
	defer r.warnMu.Unlock()

	if time.Since(r.lastWarn) < unconfiguredWarnInterval {
		return
	}
	r.lastWarn = time.Now()
	zap.S().Warnw("tenant store not configured; all subdomains resolve to not found")
}
