// internal/tenant/cache_test.go
//
// Unit-tests for the outcome cache.
//
// A fake clock stands in for time.Now so expiry is exercised without
// sleeping: entries must serve until their TTL elapses and behave as a
// miss afterwards, never as stale data.

package tenant

import (
	"testing"
	"time"
)

// fakeClock is an advanceable time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCache_PutGet(t *testing.T) {
	clk := newFakeClock()
	c := NewCacheWithClock(clk.Now)

	rec := &Record{ID: "t1", Subdomain: "acme", Status: StatusActive}
	c.Put("acme", Outcome{Kind: OutcomeFound, Record: rec}, time.Minute)

	out, ok := c.Get("acme")
	if !ok {
		t.Fatal("expected hit")
	}
	if out.Kind != OutcomeFound || out.Record.ID != "t1" {
		t.Fatalf("got %+v", out)
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := NewCacheWithClock(newFakeClock().Now)
	if _, ok := c.Get("nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestCache_ExpiredEntryIsAMiss(t *testing.T) {
	clk := newFakeClock()
	c := NewCacheWithClock(clk.Now)

	c.Put("acme", Outcome{Kind: OutcomeNotFound}, 30*time.Second)

	clk.Advance(29 * time.Second)
	if _, ok := c.Get("acme"); !ok {
		t.Fatal("entry expired early")
	}

	clk.Advance(2 * time.Second)
	if _, ok := c.Get("acme"); ok {
		t.Fatal("expired entry served")
	}
	if c.Len() != 0 {
		t.Fatalf("lazy expiry should delete; len = %d", c.Len())
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	clk := newFakeClock()
	c := NewCacheWithClock(clk.Now)

	c.Put("acme", Outcome{Kind: OutcomeError}, 15*time.Second)
	c.Put("acme", Outcome{Kind: OutcomeNotFound}, time.Minute)

	out, ok := c.Get("acme")
	if !ok || out.Kind != OutcomeNotFound {
		t.Fatalf("overwrite failed: ok=%v out=%+v", ok, out)
	}

	// The new TTL must govern, not the old one.
	clk.Advance(30 * time.Second)
	if _, ok := c.Get("acme"); !ok {
		t.Fatal("entry expired on the overwritten TTL")
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	clk := newFakeClock()
	c := NewCacheWithClock(clk.Now)

	c.Put("a", Outcome{Kind: OutcomeNotFound}, 10*time.Second)
	c.Put("b", Outcome{Kind: OutcomeNotFound}, 10*time.Minute)

	clk.Advance(time.Minute)
	c.sweep()

	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("live entry swept")
	}
}
