// internal/middleware/accesslog.go
//
// Structured access log.
//
// One INFO line per completed request, enriched with whatever the
// requestinfo middleware attached: client identity, UA family, bot flag,
// and geo hints.  Static-asset responses are logged at DEBUG so crawlers
// fetching a hundred images do not drown the log.

package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/gateway/internal/requestinfo"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// AccessLog wraps next and emits one structured log line per request.
// Must run inside requestinfo.Enrich to get identity/UA/geo fields.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := []any{
			"method", r.Method,
			"host", r.Host,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields,
				"client", info.Identity,
				"browser", info.UA.Browser,
				"bot", info.UA.IsBot,
			)
			if info.Geo.CountryISO != "" {
				fields = append(fields, "country", info.Geo.CountryISO)
			}
		}

		if isAssetPath(r.URL.Path) {
			zap.S().Debugw("request", fields...)
			return
		}
		zap.S().Infow("request", fields...)
	})
}

func isAssetPath(path string) bool {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return strings.Contains(path[i+1:], ".")
	}
	return false
}
