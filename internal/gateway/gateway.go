// internal/gateway/gateway.go
//
// Gateway orchestrator.
//
/*
Context
--------
Every inbound request enters ServeHTTP, which sequences:

	Classify → StaticPassthrough
	         | ResolveTenant → forward with tenant headers
	         |               | 404 unresolved / 503 provisioning
	         | RateLimitCheck → passthrough | 429

The two failure policies differ deliberately.  Tenant resolution fails
closed: a store error routes to "not found" rather than guessing, so a
half-configured tenant is never exposed.  Rate limiting fails open: a
panicking limiter permits the request, because a denial-of-service caused
by the limiter itself is worse than temporarily unmetered traffic.

A panic anywhere in classification or resolution is caught at the handler
boundary and degraded to a plain platform passthrough; one bad request
must never take down its neighbours.
*/
package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/gateway/internal/classify"
	"github.com/yanizio/gateway/internal/config"
	"github.com/yanizio/gateway/internal/metrics"
	"github.com/yanizio/gateway/internal/ratelimit"
	"github.com/yanizio/gateway/internal/requestinfo"
	"github.com/yanizio/gateway/internal/tenant"
)

// sitesPrefix is the internal route segment tenant requests are rewritten
// under before forwarding.
const sitesPrefix = "/sites/"

// Handler is the request-handling entry point.  It owns no mutable state
// of its own; the cache and limiter live in the injected collaborators so
// tests can build isolated instances with fake clocks.
type Handler struct {
	rules       classify.Rules
	resolver    *tenant.Resolver
	limiter     *ratelimit.Limiter
	policies    map[classify.PolicyName]ratelimit.Policy
	platformURL string
	next        http.Handler
}

// New wires the orchestrator.  next receives static assets, platform
// traffic, and rewritten tenant requests; in production it is a reverse
// proxy to the application origin.
func New(cfg *config.Config, resolver *tenant.Resolver, limiter *ratelimit.Limiter, next http.Handler) *Handler {
	return &Handler{
		rules: classify.NewRules(
			cfg.Routing.ReservedSubdomains,
			cfg.Routing.WildcardDomains,
			cfg.Routing.StaticPrefixes,
		),
		resolver: resolver,
		limiter:  limiter,
		policies: map[classify.PolicyName]ratelimit.Policy{
			classify.PolicyDefault: policy("default", cfg.RateLimit.Default),
			classify.PolicyContact: policy("contact", cfg.RateLimit.Contact),
			classify.PolicyAI:      policy("ai", cfg.RateLimit.AI),
			classify.PolicyWizard:  policy("wizard", cfg.RateLimit.Wizard),
		},
		platformURL: cfg.Routing.PlatformURL,
		next:        next,
	}
}

func policy(name string, p config.Policy) ratelimit.Policy {
	return ratelimit.Policy{Name: name, Window: p.Window, MaxRequests: p.MaxRequests}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Errorw("gateway panic; degrading to passthrough",
				"panic", rec, "host", r.Host, "path", r.URL.Path)
			h.next.ServeHTTP(w, r)
		}
	}()

	cls := h.rules.Classify(r.Host, r.URL.Path)
	metrics.RequestsTotal.WithLabelValues(cls.Kind.String()).Inc()

	switch cls.Kind {
	case classify.StaticAsset:
		h.next.ServeHTTP(w, r)
	case classify.TenantRequest:
		h.serveTenant(w, r, cls.Subdomain)
	default:
		h.servePlatform(w, r, cls.Policy)
	}
}

// serveTenant resolves the subdomain and either forwards with tenant
// context injected or answers one of the two diagnostic pages.
func (h *Handler) serveTenant(w http.ResponseWriter, r *http.Request, subdomain string) {
	out := h.resolver.Resolve(r.Context(), subdomain)

	if out.Kind != tenant.OutcomeFound {
		// NotFound and Error both land here: routing fails closed.
		writeNotFound(w, subdomain, h.platformURL)
		return
	}

	rec := out.Record
	if rec.Provisioning() {
		writeProvisioning(w, subdomain)
		return
	}

	fwd := r.Clone(r.Context())
	fwd.URL.Path = sitesPrefix + subdomain + r.URL.Path
	fwd.URL.RawPath = ""
	fwd.Header.Set("X-Tenant-Id", rec.ID)
	fwd.Header.Set("X-Tenant-Subdomain", rec.Subdomain)
	fwd.Header.Set("X-Tenant-Db", rec.DatabaseURL)
	fwd.Header.Set("X-Tenant-Type", rec.Type)
	h.next.ServeHTTP(w, fwd)
}

// servePlatform meters API paths and passes everything through.
func (h *Handler) servePlatform(w http.ResponseWriter, r *http.Request, name classify.PolicyName) {
	if name == classify.PolicyNone {
		h.next.ServeHTTP(w, r)
		return
	}

	pol := h.policies[name]
	dec := h.checkLimit(clientIdentity(r), pol)

	if !dec.Allowed {
		metrics.RateLimitDeniedTotal.WithLabelValues(pol.Name).Inc()
		writeRateLimited(w, dec)
		return
	}

	if dec.Limit > 0 {
		setRateHeaders(w.Header(), dec)
	}
	h.next.ServeHTTP(w, r)
}

// checkLimit fails open: a panicking limiter must not take the API down.
func (h *Handler) checkLimit(identity string, pol ratelimit.Policy) (dec ratelimit.Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Errorw("rate limiter panic; failing open",
				"panic", rec, "policy", pol.Name)
			dec = ratelimit.Decision{
				Allowed:   true,
				Limit:     pol.MaxRequests,
				Remaining: pol.MaxRequests,
				ResetAt:   time.Now().Add(pol.Window),
			}
		}
	}()
	return h.limiter.Check(identity, pol)
}

// clientIdentity prefers the enriched context value and falls back to a
// fresh header derivation when the middleware did not run.
func clientIdentity(r *http.Request) string {
	if info := requestinfo.FromContext(r.Context()); info != nil {
		return info.Identity
	}
	return requestinfo.ClientIdentity(r)
}
