// internal/config/model.go
//
// Typed configuration model for the gateway.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `GATEWAY_`-prefixed environment overrides – highest precedence.
//
// The whole tree is assembled once at startup and passed by reference.
// Nothing re-reads the environment mid-request; the only operational knob
// meant to be flipped between deploys is a single policy threshold (the
// wizard policy runs unlimited while the wizard flow is under active
// development).
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  Production controls HSTS emission in the
// security-header middleware.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	Production bool   `koanf:"production"`
}

//
// Upstream section
//

// Upstream names the origin the gateway forwards to after classification.
// Empty URL is valid in tests; cmd/gateway installs a stub handler then.
type Upstream struct {
	URL string `koanf:"url" validate:"omitempty,url"`
}

//
// Store section
//

// Store describes the control-plane database holding the tenant table.
//
// DSN may be empty: the resolver then answers "not found" for every
// subdomain without attempting a connection.  DSN may contain one `%s`
// verb, which is filled with Password after secret resolution, keeping
// credentials out of flat files and git history.  A Password beginning
// with `vault:` is fetched from Vault at startup.
type Store struct {
	DSN          string        `koanf:"dsn"`
	Password     string        `koanf:"password"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

//
// Cache section
//

// Cache holds the outcome-cache TTLs.  Negative and error outcomes expire
// sooner than positive ones so a transient store failure cannot pin a
// wrong answer for minutes.
type Cache struct {
	PositiveTTL time.Duration `koanf:"positive_ttl"`
	NegativeTTL time.Duration `koanf:"negative_ttl"`
	ErrorTTL    time.Duration `koanf:"error_ttl"`
}

//
// Rate-limit section
//

// Policy is one fixed-window threshold.  MaxRequests <= 0 disables the
// limit for that policy.
type Policy struct {
	Window      time.Duration `koanf:"window"`
	MaxRequests int           `koanf:"max_requests"`
}

// RateLimit carries the four named policies selected by the classifier.
type RateLimit struct {
	Default Policy `koanf:"default"`
	Contact Policy `koanf:"contact"`
	AI      Policy `koanf:"ai"`
	Wizard  Policy `koanf:"wizard"`
}

//
// Routing section
//

// Routing drives request classification.
type Routing struct {
	// First host labels that never name a tenant (www, cms, admin, …).
	ReservedSubdomains []string `koanf:"reserved_subdomains"`
	// Hosting-provider apex domains whose first label is a deployment
	// name, not a tenant (e.g. myapp.vercel.app).
	WildcardDomains []string `koanf:"wildcard_domains"`
	// Path prefixes served as static assets, bypassing the pipeline.
	StaticPrefixes []string `koanf:"static_prefixes"`
	// Platform URL used in the 404 page's "back to platform" link.
	PlatformURL string `koanf:"platform_url"`
}

//
// Geo section
//

// Geo points at an optional MaxMind database for access-log enrichment.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or GATEWAY_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Upstream  Upstream  `koanf:"upstream"`
	Store     Store     `koanf:"store"`
	Cache     Cache     `koanf:"cache"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Routing   Routing   `koanf:"routing"`
	Geo       Geo       `koanf:"geo"`
	Paths     Paths     `koanf:"-"`
}
