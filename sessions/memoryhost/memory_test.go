package memoryhost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/mcp-session-go/sessions"
	"github.com/ggoodman/mcp-session-go/sessions/backendtest"
)

func TestMemoryHost(t *testing.T) {
	backendtest.RunBackendTests(t, func(t *testing.T) sessions.Backend {
		return New()
	})
}

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

func TestSlidingTTL(t *testing.T) {
	clk := &fakeClock{cur: time.Unix(1_700_000_000, 0)}
	h := New(WithTTL(time.Minute), WithClock(clk.Now))
	ctx := context.Background()

	_ = h.PutSessionData(ctx, "s1", "k", []byte("v"))
	clk.Advance(50 * time.Second)
	// Writing refreshes the deadline.
	_ = h.PutSessionData(ctx, "s1", "k2", []byte("v2"))
	clk.Advance(50 * time.Second)

	if v, _ := h.GetSessionData(ctx, "s1", "k"); string(v) != "v" {
		t.Fatalf("expected value within refreshed TTL, got %q", v)
	}

	clk.Advance(11 * time.Second)
	if v, _ := h.GetSessionData(ctx, "s1", "k"); v != nil {
		t.Fatalf("expected expiry, got %q", v)
	}
	if h.Len() != 0 {
		t.Fatalf("expired session should be evicted on access")
	}
}

func TestSweep(t *testing.T) {
	clk := &fakeClock{cur: time.Unix(1_700_000_000, 0)}
	h := New(WithTTL(time.Minute), WithClock(clk.Now))
	ctx := context.Background()

	_ = h.PutSessionData(ctx, "old", "k", []byte("v"))
	clk.Advance(2 * time.Minute)
	_ = h.PutSessionData(ctx, "new", "k", []byte("v"))

	if n := h.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if v, _ := h.GetSessionData(ctx, "new", "k"); string(v) != "v" {
		t.Fatalf("live session swept")
	}
}

func TestWriteAfterExpiryStartsFresh(t *testing.T) {
	clk := &fakeClock{cur: time.Unix(1_700_000_000, 0)}
	h := New(WithTTL(time.Minute), WithClock(clk.Now))
	ctx := context.Background()

	_ = h.PutSessionData(ctx, "s1", "a", []byte("1"))
	clk.Advance(2 * time.Minute)
	_ = h.PutSessionData(ctx, "s1", "b", []byte("2"))

	if v, _ := h.GetSessionData(ctx, "s1", "a"); v != nil {
		t.Fatalf("stale key resurrected: %q", v)
	}
}

func TestCanceledContext(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.PutSessionData(ctx, "s", "k", nil); err == nil {
		t.Fatalf("expected context error")
	}
}
