// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` — first `<root>/conf/.env`, then jail-wide fallback.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `GATEWAY_`, where `__` maps to “.”
     (e.g., `GATEWAY_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
defaulted, validated, enriched with the runtime root path, and cached in
an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/gateway` work from any sub-directory.
  • Secret references (`vault:` prefix in store.password) are resolved by
    cmd/gateway after Load, not here, so the loader stays side-effect free.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves GATEWAY_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("GATEWAY_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: GATEWAY_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	cfg.applyDefaults()
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"production", cfg.HTTP.Production,
		"store_configured", cfg.Store.DSN != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// applyDefaults fills zero values with operational defaults so a minimal
// YAML file still yields a runnable gateway.
func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Store.QueryTimeout <= 0 {
		c.Store.QueryTimeout = 3 * time.Second
	}
	if c.Cache.PositiveTTL <= 0 {
		c.Cache.PositiveTTL = 5 * time.Minute
	}
	if c.Cache.NegativeTTL <= 0 {
		c.Cache.NegativeTTL = 30 * time.Second
	}
	if c.Cache.ErrorTTL <= 0 {
		c.Cache.ErrorTTL = 15 * time.Second
	}
	if c.RateLimit.Default.Window <= 0 {
		c.RateLimit.Default = Policy{Window: time.Minute, MaxRequests: 100}
	}
	if c.RateLimit.Contact.Window <= 0 {
		c.RateLimit.Contact = Policy{Window: time.Hour, MaxRequests: 5}
	}
	if c.RateLimit.AI.Window <= 0 {
		c.RateLimit.AI = Policy{Window: time.Minute, MaxRequests: 10}
	}
	if c.RateLimit.Wizard.Window <= 0 {
		// Unlimited while the wizard flow is under active development.
		c.RateLimit.Wizard = Policy{Window: time.Minute, MaxRequests: 0}
	}
	if len(c.Routing.ReservedSubdomains) == 0 {
		c.Routing.ReservedSubdomains = []string{"www", "cms", "admin", "api"}
	}
	if len(c.Routing.WildcardDomains) == 0 {
		c.Routing.WildcardDomains = []string{"vercel.app", "netlify.app", "herokuapp.com"}
	}
	if len(c.Routing.StaticPrefixes) == 0 {
		c.Routing.StaticPrefixes = []string{"/_next/", "/static/", "/assets/"}
	}
	if c.Routing.PlatformURL == "" {
		c.Routing.PlatformURL = "https://www.yaniz.io"
	}
}

// BuildDSN fills the one optional `%s` verb in the store DSN template with
// the resolved password.  A template without the verb is returned as-is.
func (s Store) BuildDSN(password string) string {
	if strings.Contains(s.DSN, "%s") {
		return fmt.Sprintf(s.DSN, password)
	}
	return s.DSN
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
