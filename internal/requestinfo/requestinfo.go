// internal/requestinfo/requestinfo.go
//
// Per-request metadata: client identity, user-agent fingerprint, and
// best-effort geolocation.  These structs are inert—no database handles
// or large buffers—so they are safe to log or JSON-encode.
//
// Dependencies
// • github.com/avct/uasurfer          (UA parsing)
// • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)

package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties the access log cares about.
type UA struct {
	Raw     string // entire User-Agent header
	Browser string // "Chrome", "Firefox", "Safari", …
	Version string // "124.0.6367"
	OS      string // "macOS", "Windows", "Android", …
	Device  string // "Desktop", "Phone", "Tablet", …
	IsBot   bool   // true if UA matches known crawler signatures
}

// Geo holds IP-based geolocation hints.  Best-effort; empty when no Geo
// database is configured or the address has no match.
type Geo struct {
	IP         net.IP
	CountryISO string // "US", "CA", "FR", …
	City       string // "Chicago", "Paris", …
}

// RequestInfo is attached to the request context by Enrich.
type RequestInfo struct {
	Identity  string // rate-limit bucket key, see ClientIdentity
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle, safe for concurrent reads.
// Nil when no database is configured; lookups then return an empty Geo.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database at startup.  Optional: when it
// is never called, geolocation fields stay empty.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

//
//  -----------------------------
//  Client identity
//  -----------------------------
//

// IdentityUnknown is the shared bucket for requests that arrive with no
// origin-indicating header at all.  Coarse on purpose: such requests come
// straight to the process, not through the edge proxy.
const IdentityUnknown = "unknown"

// ClientIdentity derives the rate-limit key from origin headers.  The
// first non-empty of X-Forwarded-For (left-most hop), X-Real-IP, and
// CF-Connecting-IP wins.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
			return first
		}
	}
	if xrip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xrip != "" {
		return xrip
	}
	if cf := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); cf != "" {
		return cf
	}
	return IdentityUnknown
}

//
//  -----------------------------
//  Context plumbing
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil if
// the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader string) UA {
	u := surfer.Parse(uaHeader)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}

	return UA{
		Raw:     uaHeader,
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version: versionToString(u.Browser.Version),
		OS:      osName,
		Device:  deviceTypeToString(u.DeviceType),
		IsBot:   u.IsBot(),
	}
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	out := strconv.Itoa(v.Major)
	if v.Minor != 0 || v.Patch != 0 {
		out += "." + strconv.Itoa(v.Minor)
	}
	if v.Patch != 0 {
		out += "." + strconv.Itoa(v.Patch)
	}
	return out
}

// deviceTypeToString maps uasurfer.DeviceType to a user-friendly string.
func deviceTypeToString(dt surfer.DeviceType) string {
	switch dt {
	case surfer.DeviceComputer:
		return "Desktop"
	case surfer.DevicePhone:
		return "Phone"
	case surfer.DeviceTablet:
		return "Tablet"
	case surfer.DeviceTV:
		return "TV"
	case surfer.DeviceWearable:
		return "Wearable"
	case surfer.DeviceConsole:
		return "Console"
	default:
		return "Unknown"
	}
}

// lookupGeo queries the MaxMind database when one is loaded.
func lookupGeo(ip net.IP) Geo {
	g := Geo{IP: ip}
	if geoReader == nil || ip == nil {
		return g
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return g
	}
	g.CountryISO = rec.Country.IsoCode
	g.City = rec.City.Names["en"]
	return g
}
