// cmd/gateway/main.go
//
// Tenant edge gateway – HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load config (YAML + GATEWAY_ env overrides), resolving any
//     `vault:` secret reference in the store password.
//
//  4. Open the control-plane pool when a DSN is configured.  A missing
//     DSN is a valid state: the resolver then answers "not found" for
//     every subdomain without dialling anything.
//
//  5. Build the outcome cache, resolver, and rate limiter, and start
//     their background sweeps.
//
//  6. Assemble the chain:
//
//     Security → ForceHTTPS? → Enrich → AccessLog → chi router
//                                                    ├ /metrics
//                                                    ├ /healthz
//                                                    └ /* gateway → upstream
//
//  7. Serve with hardened timeouts; drain on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/gateway/internal/config"
	"github.com/yanizio/gateway/internal/database"
	"github.com/yanizio/gateway/internal/gateway"
	"github.com/yanizio/gateway/internal/logger"
	"github.com/yanizio/gateway/internal/middleware"
	"github.com/yanizio/gateway/internal/ratelimit"
	"github.com/yanizio/gateway/internal/requestinfo"
	"github.com/yanizio/gateway/internal/server"
	"github.com/yanizio/gateway/internal/tenant"
	"github.com/yanizio/gateway/internal/vault"
)

const serverEnvPath = "/usr/local/etc/gateway/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	//
	// ── 1.  Control-plane store (optional) ──────────────────────────────
	//
	var store tenant.Store
	var db interface{ PingContext(context.Context) error }
	if cfg.Store.DSN != "" {
		password := cfg.Store.Password
		if vault.IsRef(password) {
			cli, verr := vault.New(ctx)
			if verr != nil {
				logOut.Fatalf("vault client: %v", verr)
			}
			password, verr = cli.ResolveRef(ctx, password)
			if verr != nil {
				logOut.Fatalf("resolve store password: %v", verr)
			}
		}

		dsn := cfg.Store.BuildDSN(password)
		bootCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pool, derr := database.Open(bootCtx, dsn)
		cancel()
		if derr != nil {
			// A down store at boot is a degraded state, not a fatal
			// one; per-request lookups will fail closed and be cached
			// as error outcomes until it recovers.
			logOut.Errorw("control-plane store unreachable at boot", "err", derr)
			pool, derr = database.OpenLazy(dsn)
			if derr != nil {
				logOut.Errorw("store DSN unusable; running without a store", "err", derr)
			}
		}
		if pool != nil {
			defer pool.Close()
			store = tenant.NewSQLStore(pool)
			db = pool
			logOut.Infow("control-plane store online")
		}
	}

	//
	// ── 2.  Core state ──────────────────────────────────────────────────
	//
	cache := tenant.NewCache()
	resolver := tenant.NewResolver(store, cache, tenant.TTLs{
		Positive: cfg.Cache.PositiveTTL,
		Negative: cfg.Cache.NegativeTTL,
		Error:    cfg.Cache.ErrorTTL,
	}, cfg.Store.QueryTimeout)
	limiter := ratelimit.New()

	go cache.SweepLoop(ctx, time.Minute)
	go limiter.SweepLoop(ctx, time.Minute)

	if cfg.Geo.DBPath != "" {
		if gerr := requestinfo.InitGeo(cfg.Geo.DBPath); gerr != nil {
			logOut.Warnw("geo database unavailable", "path", cfg.Geo.DBPath, "err", gerr)
		}
	}

	//
	// ── 3.  Upstream ────────────────────────────────────────────────────
	//
	upstream := upstreamHandler(cfg, logOut.Errorw)

	//
	// ── 4.  Router and middleware chain ─────────────────────────────────
	//
	gw := gateway.New(cfg, resolver, limiter, upstream)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(db))
	r.Handle("/*", gw)

	var handler http.Handler = requestinfo.Enrich(middleware.AccessLog(r))
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(handler)
	}
	handler = middleware.Security(cfg.HTTP.Production)(handler)

	//
	// ── 5.  Serve until signalled ───────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler)

	go func() {
		logOut.Infow("gateway listening", "addr", cfg.HTTP.ListenAddr)
		if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			logOut.Fatalf("http server: %v", serr)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(drainCtx); serr != nil {
		logOut.Errorw("shutdown", "err", serr)
	}
}

// upstreamHandler builds the origin proxy, or a 502 stub when no
// upstream is configured (useful for smoke tests of the gateway alone).
func upstreamHandler(cfg *config.Config, logErr func(string, ...any)) http.Handler {
	if cfg.Upstream.URL == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no upstream configured", http.StatusBadGateway)
		})
	}

	u, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		// Validation should have caught this; treat like unconfigured.
		logErr("bad upstream url", "url", cfg.Upstream.URL, "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no upstream configured", http.StatusBadGateway)
		})
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, perr error) {
		logErr("upstream proxy error", "err", perr, "path", r.URL.Path)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return proxy
}

// healthHandler reports process liveness plus store reachability.
func healthHandler(db interface{ PingContext(context.Context) error }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeState := "unconfigured"
		if db != nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				storeState = "unreachable"
			} else {
				storeState = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","store":"` + storeState + `"}`))
	}
}
