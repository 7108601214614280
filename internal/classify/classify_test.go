// internal/classify/classify_test.go
//
// Table tests for request classification: subdomain extraction, the
// platform-host rules, the static-asset shortcut, and policy selection.

package classify

import "testing"

func testRules() Rules {
	return NewRules(
		[]string{"www", "cms", "admin", "api"},
		[]string{"vercel.app", "netlify.app"},
		[]string{"/_next/", "/static/", "/assets/"},
	)
}

func TestClassify_Hosts(t *testing.T) {
	ru := testRules()

	cases := []struct {
		host      string
		wantKind  Kind
		subdomain string
	}{
		{"app.client1.example.com", TenantRequest, "app"},
		{"acme.platform.test", TenantRequest, "acme"},
		{"ACME.Platform.Test", TenantRequest, "acme"}, // lowercased
		{"acme.platform.test:8080", TenantRequest, "acme"},
		{"cms.example.com", PlatformRequest, ""},
		{"www.example.com", PlatformRequest, ""},
		{"example.com", PlatformRequest, ""},    // too few labels
		{"localhost:3000", PlatformRequest, ""}, // dev marker
		{"app.localhost:3000", PlatformRequest, ""},
		{"myapp.vercel.app", PlatformRequest, ""}, // hosting wildcard
		{"127.0.0.1:8080", PlatformRequest, ""},
		{"10.1.2.3", PlatformRequest, ""}, // bare IP, never a tenant
		{"", PlatformRequest, ""},
	}

	for _, tc := range cases {
		got := ru.Classify(tc.host, "/")
		if got.Kind != tc.wantKind {
			t.Errorf("host %q: kind = %v, want %v", tc.host, got.Kind, tc.wantKind)
		}
		if got.Subdomain != tc.subdomain {
			t.Errorf("host %q: subdomain = %q, want %q", tc.host, got.Subdomain, tc.subdomain)
		}
	}
}

func TestClassify_StaticAssets(t *testing.T) {
	ru := testRules()

	static := []string{
		"/static/logo.png",
		"/_next/chunk.js",
		"/assets/site.css",
		"/favicon.ico",
		"/deep/path/photo.jpeg",
	}
	for _, p := range static {
		// Host would otherwise classify as tenant; static wins.
		if got := ru.Classify("acme.platform.test", p); got.Kind != StaticAsset {
			t.Errorf("path %q: kind = %v, want StaticAsset", p, got.Kind)
		}
	}

	dynamic := []string{"/", "/dashboard", "/api/contact", "/v1.2/api"}
	for _, p := range dynamic {
		if got := ru.Classify("cms.example.com", p); got.Kind == StaticAsset {
			t.Errorf("path %q classified static", p)
		}
	}
}

func TestClassify_PolicySelection(t *testing.T) {
	ru := testRules()

	cases := []struct {
		path string
		want PolicyName
	}{
		{"/api/contact", PolicyContact},
		{"/api/contact/submit", PolicyContact},
		{"/api/ai/chat", PolicyAI},
		{"/api/sites/generate", PolicyAI},
		{"/api/wizard/step", PolicyWizard},
		{"/api/pages", PolicyDefault},
		{"/dashboard", PolicyNone},
		{"/", PolicyNone},
	}

	for _, tc := range cases {
		got := ru.Classify("cms.example.com", tc.path)
		if got.Kind != PlatformRequest {
			t.Fatalf("path %q: kind = %v, want PlatformRequest", tc.path, got.Kind)
		}
		if got.Policy != tc.want {
			t.Errorf("path %q: policy = %q, want %q", tc.path, got.Policy, tc.want)
		}
	}
}

func TestClassify_TenantRequestsCarryNoPolicy(t *testing.T) {
	ru := testRules()
	got := ru.Classify("acme.platform.test", "/api/contact")
	if got.Kind != TenantRequest || got.Policy != PolicyNone {
		t.Fatalf("got %+v", got)
	}
}
