// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects hardening headers on every response leaving the gateway,
// including 404/503/429 pages:
//
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//   • Content-Security-Policy   –  sane default self-only policy
//   • Strict-Transport-Security –  production builds only
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP so they land even when the
//   handler writes immediately; Set overwrites rather than appends, which
//   keeps re-application idempotent.
// • HSTS is gated on the production flag so local HTTP development does
//   not poison the browser's HSTS cache for localhost-style hosts.

package middleware

import "net/http"

const (
	hstsValue = "max-age=63072000; includeSubDomains; preload"
	cspValue  = "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
		"base-uri 'self'; frame-ancestors 'none'"
	xfoValue     = "DENY"
	nosniffValue = "nosniff"
	refererValue = "strict-origin-when-cross-origin"
	permValue    = "geolocation=(), microphone=(), camera=()"
)

// Security returns middleware that sets the hardening header set for
// every response.  production enables HSTS.
func Security(production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Apply(w.Header(), production)
			next.ServeHTTP(w, r)
		})
	}
}

// Apply sets the header set on h.  Idempotent: applying twice yields the
// same final headers as applying once.
func Apply(h http.Header, production bool) {
	h.Set("X-Frame-Options", xfoValue)
	h.Set("X-Content-Type-Options", nosniffValue)
	h.Set("Referrer-Policy", refererValue)
	h.Set("Permissions-Policy", permValue)
	h.Set("Content-Security-Policy", cspValue)
	if production {
		h.Set("Strict-Transport-Security", hstsValue)
	}
}
