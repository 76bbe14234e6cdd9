package ttlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *clock) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	return New(WithTTL(ttl), WithClock(c.Now)), c
}

func TestDefaultTTL(t *testing.T) {
	if got := New().TTL(); got != 1800*time.Second {
		t.Fatalf("expected 1800s default, got %v", got)
	}
	if got := New(WithTTL(0)).TTL(); got != DefaultTTL {
		t.Fatalf("non-positive TTL must be ignored, got %v", got)
	}
}

func TestTokenLazyEviction(t *testing.T) {
	s, c := newTestStore(time.Minute)
	ctx := context.Background()

	if err := s.SetToken(ctx, "s1", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	c.Advance(time.Minute)
	if tok, ok := s.Token(ctx, "s1"); !ok || tok != "tok" {
		t.Fatalf("token should be valid at exactly ttl: %q %v", tok, ok)
	}
	c.Advance(time.Second)
	if _, ok := s.Token(ctx, "s1"); ok {
		t.Fatalf("expected expired token to be absent")
	}
	if len(s.Sessions(ctx)) != 0 {
		t.Fatalf("expired record should have been evicted")
	}
}

func TestSetTokenRestartsLifetime(t *testing.T) {
	s, c := newTestStore(time.Minute)
	ctx := context.Background()

	_ = s.SetToken(ctx, "s1", "a")
	c.Advance(50 * time.Second)
	_ = s.SetToken(ctx, "s1", "b")
	c.Advance(50 * time.Second)

	if tok, ok := s.Token(ctx, "s1"); !ok || tok != "b" {
		t.Fatalf("expected replaced token, got %q %v", tok, ok)
	}
}

func TestSessionsSweepsExpired(t *testing.T) {
	s, c := newTestStore(time.Minute)
	ctx := context.Background()

	_ = s.SetToken(ctx, "old", "x")
	c.Advance(2 * time.Minute)
	_ = s.SetToken(ctx, "new", "y")

	got := s.Sessions(ctx)
	if len(got) != 1 {
		t.Fatalf("expected 1 live session, got %v", got)
	}
	rec, ok := got["new"]
	if !ok || rec.Token != "y" || rec.TTL != time.Minute {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.ExpiresAt().Equal(c.Now().Add(time.Minute)) {
		t.Fatalf("unexpected expiry %v", rec.ExpiresAt())
	}
}

func TestLastAccessedTracksReads(t *testing.T) {
	s, c := newTestStore(time.Hour)
	ctx := context.Background()

	_ = s.SetToken(ctx, "s1", "x")
	c.Advance(10 * time.Minute)
	s.Token(ctx, "s1")

	rec := s.Sessions(ctx)["s1"]
	if !rec.LastAccessed.Equal(c.Now()) {
		t.Fatalf("last accessed not updated: %v", rec.LastAccessed)
	}
	if rec.CreatedAt.Equal(rec.LastAccessed) {
		t.Fatalf("created at should not move on read")
	}
}

func TestClearAndDelete(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	ctx := context.Background()

	s.ClearToken(ctx, "unknown")
	_ = s.SetToken(ctx, "s1", "x")
	_ = s.SetToken(ctx, "s2", "y")
	s.ClearToken(ctx, "s1")
	s.Delete(ctx, "s2")
	if len(s.Sessions(ctx)) != 0 {
		t.Fatalf("expected no sessions")
	}
	if err := s.SetToken(ctx, "", "x"); !errors.Is(err, ErrEmptySessionID) {
		t.Fatalf("expected ErrEmptySessionID, got %v", err)
	}
}

func TestSessionsReturnsCopies(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	ctx := context.Background()
	_ = s.SetToken(ctx, "s1", "x")

	snap := s.Sessions(ctx)
	rec := snap["s1"]
	rec.Token = "mutated"
	snap["s1"] = rec

	if tok, _ := s.Token(ctx, "s1"); tok != "x" {
		t.Fatalf("snapshot aliased store: %q", tok)
	}
}
