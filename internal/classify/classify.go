// internal/classify/classify.go
//
// Request classification.
//
// Context
// -------
// Classify is a pure decision function from (host, path) to a routing
// class; it performs no I/O and holds no per-request state, so the
// orchestrator can call it on every request without synchronization.
// Anything ambiguous—a malformed host, a bare IP, a local-development
// host—lands on PlatformRequest, the safe default.
package classify

import (
	"net"
	"strings"
)

// Kind is the routing class of a request.
type Kind int

const (
	// StaticAsset bypasses the whole pipeline: no tenant lookup, no
	// rate limiting, minimal headers.
	StaticAsset Kind = iota
	// TenantRequest carries the candidate subdomain.
	TenantRequest
	// PlatformRequest is everything else, optionally rate limited.
	PlatformRequest
)

func (k Kind) String() string {
	switch k {
	case StaticAsset:
		return "static"
	case TenantRequest:
		return "tenant"
	default:
		return "platform"
	}
}

// PolicyName selects which rate-limit policy applies to a platform
// request.  PolicyNone means the path is not metered.
type PolicyName string

const (
	PolicyNone    PolicyName = ""
	PolicyDefault PolicyName = "default"
	PolicyContact PolicyName = "contact"
	PolicyAI      PolicyName = "ai"
	PolicyWizard  PolicyName = "wizard"
)

// Class is the classifier's verdict for one request.
type Class struct {
	Kind      Kind
	Subdomain string     // set for TenantRequest, already lowercased
	Policy    PolicyName // set for PlatformRequest on API paths
}

// Rules holds the static inputs classification needs.  Build once from
// config at startup.
type Rules struct {
	reserved       map[string]struct{}
	wildcardApexes []string
	staticPrefixes []string
}

// NewRules compiles the routing lists into lookup form.
func NewRules(reservedSubdomains, wildcardDomains, staticPrefixes []string) Rules {
	reserved := make(map[string]struct{}, len(reservedSubdomains))
	for _, s := range reservedSubdomains {
		reserved[strings.ToLower(s)] = struct{}{}
	}
	return Rules{
		reserved:       reserved,
		wildcardApexes: wildcardDomains,
		staticPrefixes: staticPrefixes,
	}
}

// Classify maps request metadata to a routing class.
func (ru Rules) Classify(host, path string) Class {
	if ru.isStatic(path) {
		return Class{Kind: StaticAsset}
	}
	if sub, ok := ru.tenantSubdomain(host); ok {
		return Class{Kind: TenantRequest, Subdomain: sub}
	}
	return Class{Kind: PlatformRequest, Policy: policyFor(path)}
}

// isStatic matches framework asset prefixes and file-extension paths.
func (ru Rules) isStatic(path string) bool {
	for _, p := range ru.staticPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	// A dot in the final segment means an asset file (logo.png, app.js).
	if i := strings.LastIndexByte(path, '/'); i >= 0 && strings.Contains(path[i+1:], ".") {
		return true
	}
	return false
}

// tenantSubdomain extracts the candidate tenant label, or reports false
// when the host belongs to the platform.
func (ru Rules) tenantSubdomain(host string) (string, bool) {
	host = strings.ToLower(stripPort(host))
	if host == "" || strings.Contains(host, "localhost") {
		return "", false
	}
	if net.ParseIP(host) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return "", false
	}

	first := labels[0]
	if first == "" {
		return "", false
	}
	if _, ok := ru.reserved[first]; ok {
		return "", false
	}

	// myapp.vercel.app names a deployment, not a tenant.
	apex := strings.Join(labels[1:], ".")
	for _, wd := range ru.wildcardApexes {
		if apex == wd {
			return "", false
		}
	}

	return first, true
}

// policyFor picks the rate-limit policy by path prefix.  Only API paths
// are metered.
func policyFor(path string) PolicyName {
	switch {
	case strings.HasPrefix(path, "/api/contact"):
		return PolicyContact
	case strings.HasPrefix(path, "/api/ai/") || strings.Contains(path, "/generate"):
		return PolicyAI
	case strings.HasPrefix(path, "/api/wizard"):
		return PolicyWizard
	case strings.HasPrefix(path, "/api/"):
		return PolicyDefault
	default:
		return PolicyNone
	}
}

// stripPort removes the :port suffix from Host when present.  IPv6
// literals keep their brackets stripped too.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}
