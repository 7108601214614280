package ratelimit

import "time"

// Policy is one named fixed-window threshold.  Policies are static
// configuration values; the classifier picks which one applies to a
// request and the limiter never mutates them.
//
// MaxRequests <= 0 disables the limit entirely.  The wizard policy ships
// disabled while the site-generation flow is under active development;
// flipping one config value re-arms it.
type Policy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

// Decision reports the outcome of one Check call, in the shape the
// X-RateLimit-* response headers need.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole-second wait a denied client should observe,
// rounded up so "1.2s left" does not tell the client to retry in 1s.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int((d.ResetAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
