// Package ttlstore keeps a single upstream token per session with a fixed
// lifetime measured from when the token was set.
//
// Records are evicted lazily: Token drops an expired record when it is read,
// and Sessions sweeps every expired record before returning a snapshot. There
// is no background goroutine. One mutex guards the whole map.
package ttlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is the token lifetime used when WithTTL is not given.
const DefaultTTL = 1800 * time.Second

var ErrEmptySessionID = errors.New("ttlstore: empty session id")

// Record is the stored state of one session.
type Record struct {
	Token        string
	CreatedAt    time.Time
	LastAccessed time.Time
	TTL          time.Duration
}

// Expired reports whether the record is past its lifetime at now.
func (r Record) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) > r.TTL
}

// ExpiresAt is CreatedAt plus TTL.
func (r Record) ExpiresAt() time.Time { return r.CreatedAt.Add(r.TTL) }

type Option func(*Store)

// WithTTL sets the lifetime applied to newly set tokens. Non-positive values
// are ignored.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Record
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Record),
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime applied to new records.
func (s *Store) TTL() time.Duration { return s.ttl }

// SetToken replaces the session's record, restarting its lifetime.
func (s *Store) SetToken(ctx context.Context, sessionID, token string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	now := s.now()
	s.mu.Lock()
	s.sessions[sessionID] = &Record{Token: token, CreatedAt: now, LastAccessed: now, TTL: s.ttl}
	s.mu.Unlock()
	s.log.DebugContext(ctx, "ttlstore.set", slog.Duration("ttl", s.ttl))
	return nil
}

// Token returns the live token for the session. An expired record is removed
// and reported as absent.
func (s *Store) Token(ctx context.Context, sessionID string) (string, bool) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}
	if rec.Expired(now) {
		delete(s.sessions, sessionID)
		s.log.DebugContext(ctx, "ttlstore.expired")
		return "", false
	}
	rec.LastAccessed = now
	return rec.Token, true
}

// ClearToken removes the session's record. It succeeds for unknown sessions.
func (s *Store) ClearToken(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Delete is ClearToken for administrative callers.
func (s *Store) Delete(ctx context.Context, sessionID string) { s.ClearToken(ctx, sessionID) }

// Sessions evicts every expired record and returns a copy of the rest.
func (s *Store) Sessions(ctx context.Context) map[string]Record {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Record, len(s.sessions))
	evicted := 0
	for id, rec := range s.sessions {
		if rec.Expired(now) {
			delete(s.sessions, id)
			evicted++
			continue
		}
		out[id] = *rec
	}
	if evicted > 0 {
		s.log.DebugContext(ctx, "ttlstore.sweep", slog.Int("evicted", evicted))
	}
	return out
}
