package memoryhost

import (
	"context"
	"sync"
	"time"

	"github.com/ggoodman/mcp-session-go/sessions"
)

// DefaultTTL is the idle lifetime of a session when WithTTL is not given.
const DefaultTTL = 24 * time.Hour

// Option configures a Host.
type Option func(*Host)

// WithTTL sets the sliding idle lifetime. Zero or negative keeps data until
// it is deleted.
func WithTTL(d time.Duration) Option { return func(h *Host) { h.ttl = d } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(h *Host) { h.now = now } }

// Host is an in-memory implementation of sessions.Backend.
type Host struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
	ttl      time.Duration
	now      func() time.Time
}

type sessionData struct {
	values    map[string][]byte
	expiresAt time.Time
}

func New(opts ...Option) *Host {
	h := &Host{
		sessions: make(map[string]*sessionData),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) GetSessionData(ctx context.Context, sessionID, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := h.now()

	h.mu.RLock()
	sd, ok := h.sessions[sessionID]
	if ok && !sd.expired(now) {
		v, found := sd.values[key]
		h.mu.RUnlock()
		if !found {
			return nil, nil
		}
		return append([]byte(nil), v...), nil
	}
	h.mu.RUnlock()

	if ok {
		h.evict(sessionID, now)
	}
	return nil, nil
}

func (h *Host) PutSessionData(ctx context.Context, sessionID, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureLocked(sessionID).values[key] = append([]byte(nil), value...)
	return nil
}

func (h *Host) DeleteSessionData(ctx context.Context, sessionID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sd, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(sd.values, key)
	if len(sd.values) == 0 {
		delete(h.sessions, sessionID)
	}
	return nil
}

// UpdateSessionData applies fn atomically and refreshes the session TTL.
func (h *Host) UpdateSessionData(ctx context.Context, sessionID, key string, fn func([]byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var cur []byte
	if sd, ok := h.sessions[sessionID]; ok && !sd.expired(h.now()) {
		if v, found := sd.values[key]; found {
			cur = append([]byte(nil), v...)
		}
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		if sd, ok := h.sessions[sessionID]; ok {
			delete(sd.values, key)
			if len(sd.values) == 0 {
				delete(h.sessions, sessionID)
			}
		}
		return nil
	}
	h.ensureLocked(sessionID).values[key] = append([]byte(nil), next...)
	return nil
}

// Sweep removes every expired session and reports how many were removed.
func (h *Host) Sweep() int {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, sd := range h.sessions {
		if sd.expired(now) {
			delete(h.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of sessions currently held, expired or not.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ensureLocked returns live session data, replacing an expired entry and
// refreshing the sliding deadline.
func (h *Host) ensureLocked(sessionID string) *sessionData {
	now := h.now()
	sd, ok := h.sessions[sessionID]
	if !ok || sd.expired(now) {
		sd = &sessionData{values: make(map[string][]byte)}
		h.sessions[sessionID] = sd
	}
	if h.ttl > 0 {
		sd.expiresAt = now.Add(h.ttl)
	}
	return sd
}

func (h *Host) evict(sessionID string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sd, ok := h.sessions[sessionID]; ok && sd.expired(now) {
		delete(h.sessions, sessionID)
	}
}

func (sd *sessionData) expired(now time.Time) bool {
	return !sd.expiresAt.IsZero() && now.After(sd.expiresAt)
}

var (
	_ sessions.Backend = (*Host)(nil)
	_ sessions.Updater = (*Host)(nil)
)
