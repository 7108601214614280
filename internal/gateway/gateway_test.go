// internal/gateway/gateway_test.go
//
// End-to-end tests for the orchestrator.
//
// Workflow / Structure
// --------------------
// mapStore ── minimal tenant.Store backed by a map, so scenarios can
// register active and provisioning tenants without a database.
//
// Each test:
//
//   1. Builds a Handler over a recording next-handler.
//   2. Fires an httptest request at a tenant or platform host.
//   3. Asserts the response status, body, headers, and what (if
//      anything) reached the upstream.

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yanizio/gateway/internal/config"
	"github.com/yanizio/gateway/internal/ratelimit"
	"github.com/yanizio/gateway/internal/tenant"
)

type mapStore struct {
	tenants map[string]*tenant.Record
}

func (s *mapStore) BySubdomain(ctx context.Context, subdomain string) (*tenant.Record, error) {
	if rec, ok := s.tenants[subdomain]; ok {
		return rec, nil
	}
	return nil, tenant.ErrNotFound
}

// upstreamRecorder captures the request the gateway forwarded.
type upstreamRecorder struct {
	called bool
	req    *http.Request
}

func (u *upstreamRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.called = true
	u.req = r
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("upstream"))
}

func testConfig() *config.Config {
	return &config.Config{
		Routing: config.Routing{
			ReservedSubdomains: []string{"www", "cms", "admin", "api"},
			WildcardDomains:    []string{"vercel.app"},
			StaticPrefixes:     []string{"/_next/", "/static/"},
			PlatformURL:        "https://www.yaniz.io",
		},
		RateLimit: config.RateLimit{
			Default: config.Policy{Window: time.Minute, MaxRequests: 100},
			Contact: config.Policy{Window: time.Hour, MaxRequests: 5},
			AI:      config.Policy{Window: time.Minute, MaxRequests: 10},
			Wizard:  config.Policy{Window: time.Minute, MaxRequests: 0},
		},
	}
}

func newTestHandler(store tenant.Store) (*Handler, *upstreamRecorder) {
	up := &upstreamRecorder{}
	resolver := tenant.NewResolver(store, tenant.NewCache(), tenant.TTLs{
		Positive: 5 * time.Minute,
		Negative: 30 * time.Second,
		Error:    15 * time.Second,
	}, time.Second)
	h := New(testConfig(), resolver, ratelimit.New(), up)
	return h, up
}

func TestGateway_ActiveTenantForwardedWithContext(t *testing.T) {
	store := &mapStore{tenants: map[string]*tenant.Record{
		"acme": {ID: "t1", Subdomain: "acme", Status: tenant.StatusActive,
			Type: "restaurant", DatabaseURL: "mysql://acme-db"},
	}}
	h, up := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "http://acme.platform.test/dashboard", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code == http.StatusNotFound || rr.Code == http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if !up.called {
		t.Fatal("request never reached the upstream")
	}
	if got := up.req.Header.Get("X-Tenant-Subdomain"); got != "acme" {
		t.Fatalf("X-Tenant-Subdomain = %q", got)
	}
	if got := up.req.Header.Get("X-Tenant-Id"); got != "t1" {
		t.Fatalf("X-Tenant-Id = %q", got)
	}
	if got := up.req.Header.Get("X-Tenant-Db"); got != "mysql://acme-db" {
		t.Fatalf("X-Tenant-Db = %q", got)
	}
	if got := up.req.URL.Path; got != "/sites/acme/dashboard" {
		t.Fatalf("rewritten path = %q", got)
	}
}

func TestGateway_UnknownTenant404NamesSubdomain(t *testing.T) {
	h, up := newTestHandler(&mapStore{tenants: map[string]*tenant.Record{}})

	req := httptest.NewRequest(http.MethodGet, "http://ghost.platform.test/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ghost") {
		t.Fatalf("body does not name the subdomain: %q", rr.Body.String())
	}
	if up.called {
		t.Fatal("unresolved tenant reached the upstream")
	}
}

func TestGateway_ProvisioningTenant503(t *testing.T) {
	store := &mapStore{tenants: map[string]*tenant.Record{
		"pending": {ID: "t9", Subdomain: "pending", Status: tenant.StatusActive,
			DatabaseURL: tenant.ProvisioningMarker},
	}}
	h, up := newTestHandler(store)

	req := httptest.NewRequest(http.MethodGet, "http://pending.platform.test/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "being") {
		t.Fatalf("body = %q", rr.Body.String())
	}
	if up.called {
		t.Fatal("provisioning tenant reached the upstream")
	}
}

func TestGateway_StoreErrorFailsClosed(t *testing.T) {
	h, up := newTestHandler(failingStore{})

	req := httptest.NewRequest(http.MethodGet, "http://acme.platform.test/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (fail closed)", rr.Code)
	}
	if up.called {
		t.Fatal("store error leaked a request to the upstream")
	}
}

type failingStore struct{}

func (failingStore) BySubdomain(ctx context.Context, subdomain string) (*tenant.Record, error) {
	return nil, context.DeadlineExceeded
}

func TestGateway_ContactPolicyDeniesSixthPost(t *testing.T) {
	h, _ := newTestHandler(&mapStore{tenants: map[string]*tenant.Record{}})

	fire := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "http://cms.example.com/api/contact", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 1; i <= 5; i++ {
		rr := fire()
		if rr.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled early", i)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
			t.Fatalf("request %d: X-RateLimit-Limit = %q", i, got)
		}
		want := strconv.Itoa(5 - i)
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Fatalf("request %d: X-RateLimit-Remaining = %q, want %q", i, got, want)
		}
	}

	rr := fire()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("sixth request: status = %d, want 429", rr.Code)
	}
	retry := rr.Header().Get("Retry-After")
	if retry == "" {
		t.Fatal("Retry-After missing")
	}
	if _, err := strconv.Atoi(retry); err != nil {
		t.Fatalf("Retry-After %q is not numeric", retry)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
	}

	var body struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("429 body is not JSON: %v", err)
	}
	if body.Error == "" || body.RetryAfter < 1 {
		t.Fatalf("429 body = %+v", body)
	}
}

func TestGateway_DistinctClientsGetDistinctBuckets(t *testing.T) {
	h, _ := newTestHandler(&mapStore{tenants: map[string]*tenant.Record{}})

	fire := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "http://cms.example.com/api/contact", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 5; i++ {
		fire("203.0.113.7")
	}
	if code := fire("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("first client: status = %d, want 429", code)
	}
	if code := fire("198.51.100.9"); code == http.StatusTooManyRequests {
		t.Fatal("second client throttled by the first")
	}
}

func TestGateway_WizardPolicyUnlimited(t *testing.T) {
	h, _ := newTestHandler(&mapStore{tenants: map[string]*tenant.Record{}})

	for i := 0; i < 250; i++ {
		req := httptest.NewRequest(http.MethodPost, "http://cms.example.com/api/wizard/step", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			t.Fatalf("wizard call %d throttled", i+1)
		}
	}
}

func TestGateway_NonAPIPlatformPathNotMetered(t *testing.T) {
	h, up := newTestHandler(&mapStore{tenants: map[string]*tenant.Record{}})

	req := httptest.NewRequest(http.MethodGet, "http://cms.example.com/pricing", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !up.called {
		t.Fatal("platform page did not pass through")
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("unmetered path carries X-RateLimit-Limit = %q", got)
	}
}

func TestGateway_StaticAssetBypassesPipeline(t *testing.T) {
	h, up := newTestHandler(failingStore{})

	req := httptest.NewRequest(http.MethodGet, "http://acme.platform.test/static/logo.png", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !up.called {
		t.Fatalf("static asset blocked: status = %d, upstream = %v", rr.Code, up.called)
	}
	// The pipeline was bypassed: no tenant headers, no rewrite.
	if up.req.URL.Path != "/static/logo.png" {
		t.Fatalf("static path rewritten to %q", up.req.URL.Path)
	}
	if up.req.Header.Get("X-Tenant-Subdomain") != "" {
		t.Fatal("static asset carries tenant context")
	}
}

func TestGateway_MissingOriginHeadersShareUnknownBucket(t *testing.T) {
	h, _ := newTestHandler(&mapStore{tenants: map[string]*tenant.Record{}})

	fire := func() int {
		req := httptest.NewRequest(http.MethodPost, "http://cms.example.com/api/contact", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 5; i++ {
		fire()
	}
	if code := fire(); code != http.StatusTooManyRequests {
		t.Fatalf("headerless clients not pooled: status = %d", code)
	}
}
