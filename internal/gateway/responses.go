// internal/gateway/responses.go
//
// The three user-visible gateway responses: unresolved tenant (404),
// tenant mid-provisioning (503), and rate-limit denial (429).  Everything
// else the gateway does is invisible to the end user.

package gateway

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/gateway/internal/ratelimit"
)

const notFoundPage = `<!DOCTYPE html>
<html>
<head><title>Site Not Found</title></head>
<body>
<h1>Site not found</h1>
<p>There is no site at <strong>%s</strong>.</p>
<p><a href="%s">Back to the platform</a></p>
</body>
</html>
`

const provisioningPage = `<!DOCTYPE html>
<html>
<head><title>Almost Ready</title></head>
<body>
<h1>%s is being set up</h1>
<p>This site is still being provisioned.  Check back in a moment.</p>
</body>
</html>
`

// writeNotFound answers 404 with a minimal page naming the unresolved
// subdomain.  The subdomain comes off the wire, so it is escaped.
func writeNotFound(w http.ResponseWriter, subdomain, platformURL string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, notFoundPage, html.EscapeString(subdomain), html.EscapeString(platformURL))
}

// writeProvisioning answers 503 while the tenant's database is mid-setup.
func writeProvisioning(w http.ResponseWriter, subdomain string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Retry-After", "30")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, provisioningPage, html.EscapeString(subdomain))
}

// rateLimitedBody is the JSON payload for 429 responses.
type rateLimitedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

func writeRateLimited(w http.ResponseWriter, dec ratelimit.Decision) {
	retry := dec.RetryAfter(time.Now())

	h := w.Header()
	setRateHeaders(h, dec)
	h.Set("Retry-After", strconv.Itoa(retry))
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	body := rateLimitedBody{
		Error:      "rate_limited",
		Message:    "Too many requests.  Please try again later.",
		RetryAfter: retry,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.S().Debugw("rate-limit body write failed", "err", err)
	}
}

func setRateHeaders(h http.Header, dec ratelimit.Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))
}
