package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	ErrEmptySessionID   = errors.New("sessions: empty session id")
	ErrUnknownNamespace = errors.New("sessions: unknown namespace")
	ErrUnknownKey       = errors.New("sessions: unknown key")
	ErrValueTooLarge    = errors.New("sessions: value too large")
)

// Namespace partitions the keys of a session.
type Namespace string

const (
	NamespaceToken       Namespace = "token"
	NamespaceContext     Namespace = "context"
	NamespacePreferences Namespace = "preferences"
	NamespaceClient      Namespace = "client"
)

// Keys of the fixed namespaces.
const (
	KeyToken = "token"

	KeyOrganization = "organization"
	KeyWorkspace    = "workspace"
	KeyProject      = "project"

	KeyClientRegion      = "region"
	KeyClientAgent       = "agent"
	KeyClientTimestamp   = "timestamp"
	KeyClientPreferences = "preferences"
	KeyClientRaw         = "raw"
)

// namespaceKeys lists the keys of every fixed namespace. A nil entry marks a
// free-form namespace.
var namespaceKeys = map[Namespace][]string{
	NamespaceToken:       {KeyToken},
	NamespaceContext:     {KeyOrganization, KeyWorkspace, KeyProject},
	NamespaceClient:      {KeyClientRegion, KeyClientAgent, KeyClientTimestamp, KeyClientPreferences, KeyClientRaw},
	NamespacePreferences: nil,
}

// preferencesKey holds the whole preferences map.
const preferencesKey = "preferences"

// Keys returns the keys of a fixed namespace, or nil for a free-form one.
func Keys(ns Namespace) []string {
	return append([]string(nil), namespaceKeys[ns]...)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxValueBytes rejects encoded values larger than n bytes. Zero disables
// the check.
func WithMaxValueBytes(n int) StoreOption {
	return func(s *Store) { s.maxValueBytes = n }
}

// Store is the namespaced view over a Backend. It is safe for concurrent use
// when its Backend is.
type Store struct {
	backend       Backend
	kind          BackendKind
	log           *slog.Logger
	maxValueBytes int
}

// NewStore selects a backend for host (see SelectBackend) and binds it for
// the life of the Store.
func NewStore(host any, opts ...StoreOption) *Store {
	b, kind := SelectBackend(host)
	s := &Store{
		backend: b,
		kind:    kind,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log.Debug("sessions.store.backend", slog.String("kind", string(kind)))
	return s
}

// Kind reports the selected backend kind.
func (s *Store) Kind() BackendKind { return s.kind }

// Backend returns the selected backend.
func (s *Store) Backend() Backend { return s.backend }

// Get decodes the stored value into dst. found is false when the value is
// absent, in which case dst is untouched.
func (s *Store) Get(ctx context.Context, sessionID string, ns Namespace, key string, dst any) (bool, error) {
	if err := validate(sessionID, ns, key); err != nil {
		return false, err
	}
	if ns == NamespacePreferences {
		prefs, err := s.loadPreferences(ctx, sessionID)
		if err != nil {
			return false, err
		}
		raw, ok := prefs[key]
		if !ok {
			return false, nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return false, fmt.Errorf("decode %s/%s: %w", ns, key, err)
		}
		return true, nil
	}

	raw, err := s.backend.GetSessionData(ctx, sessionID, storageKey(ns, key))
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// Set stores value, creating the session on first write. In the preferences
// namespace key names a single preference that is merged into the stored map.
func (s *Store) Set(ctx context.Context, sessionID string, ns Namespace, key string, value any) error {
	if err := validate(sessionID, ns, key); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ns, key, err)
	}
	if s.maxValueBytes > 0 && len(raw) > s.maxValueBytes {
		return fmt.Errorf("set %s/%s: %w (%d > %d bytes)", ns, key, ErrValueTooLarge, len(raw), s.maxValueBytes)
	}
	if ns == NamespacePreferences {
		return s.mergePreferences(ctx, sessionID, func(prefs map[string]json.RawMessage) {
			prefs[key] = raw
		})
	}
	if err := s.backend.PutSessionData(ctx, sessionID, storageKey(ns, key), raw); err != nil {
		return fmt.Errorf("set %s/%s: %w", ns, key, err)
	}
	return nil
}

// Remove deletes one value. Removing an absent value succeeds.
func (s *Store) Remove(ctx context.Context, sessionID string, ns Namespace, key string) error {
	if err := validate(sessionID, ns, key); err != nil {
		return err
	}
	if ns == NamespacePreferences {
		return s.mergePreferences(ctx, sessionID, func(prefs map[string]json.RawMessage) {
			delete(prefs, key)
		})
	}
	if err := s.backend.DeleteSessionData(ctx, sessionID, storageKey(ns, key)); err != nil {
		return fmt.Errorf("remove %s/%s: %w", ns, key, err)
	}
	return nil
}

// ClearNamespace removes every key of ns for the session.
func (s *Store) ClearNamespace(ctx context.Context, sessionID string, ns Namespace) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	keys, ok := namespaceKeys[ns]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if ns == NamespacePreferences {
		if err := s.backend.DeleteSessionData(ctx, sessionID, storageKey(ns, preferencesKey)); err != nil {
			return fmt.Errorf("clear %s: %w", ns, err)
		}
		return nil
	}
	for _, key := range keys {
		if err := s.backend.DeleteSessionData(ctx, sessionID, storageKey(ns, key)); err != nil {
			return fmt.Errorf("clear %s/%s: %w", ns, key, err)
		}
	}
	return nil
}

// Preferences returns a copy of the session's preference map. The result is
// never nil.
func (s *Store) Preferences(ctx context.Context, sessionID string) (map[string]any, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	prefs, err := s.loadPreferences(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(prefs))
	for k, raw := range prefs {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode preferences/%s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func (s *Store) loadPreferences(ctx context.Context, sessionID string) (map[string]json.RawMessage, error) {
	raw, err := s.backend.GetSessionData(ctx, sessionID, storageKey(NamespacePreferences, preferencesKey))
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return decodePreferences(raw)
}

func (s *Store) mergePreferences(ctx context.Context, sessionID string, mutate func(map[string]json.RawMessage)) error {
	key := storageKey(NamespacePreferences, preferencesKey)
	apply := func(cur []byte) ([]byte, error) {
		prefs, err := decodePreferences(cur)
		if err != nil {
			return nil, err
		}
		mutate(prefs)
		if len(prefs) == 0 {
			return nil, nil
		}
		return json.Marshal(prefs)
	}

	if u, ok := s.backend.(Updater); ok {
		if err := u.UpdateSessionData(ctx, sessionID, key, apply); err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
		return nil
	}

	// Plain read-modify-write: a concurrent writer may be overwritten.
	cur, err := s.backend.GetSessionData(ctx, sessionID, key)
	if err != nil {
		return fmt.Errorf("get preferences: %w", err)
	}
	next, err := apply(cur)
	if err != nil {
		return err
	}
	if next == nil {
		err = s.backend.DeleteSessionData(ctx, sessionID, key)
	} else {
		err = s.backend.PutSessionData(ctx, sessionID, key, next)
	}
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

func decodePreferences(raw []byte) (map[string]json.RawMessage, error) {
	prefs := make(map[string]json.RawMessage)
	if raw == nil {
		return prefs, nil
	}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func validate(sessionID string, ns Namespace, key string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	keys, ok := namespaceKeys[ns]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if keys == nil {
		if key == "" {
			return fmt.Errorf("%w: empty key in %s", ErrUnknownKey, ns)
		}
		return nil
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrUnknownKey, ns, key)
}

func storageKey(ns Namespace, key string) string {
	return string(ns) + ":" + key
}
