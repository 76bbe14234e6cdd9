package sessions

import "context"

// Backend is raw per-session key/value storage. Implementations must keep
// sessions isolated from each other and must not retain or alias the value
// slices they are handed or return.
type Backend interface {
	// GetSessionData returns (nil, nil) when the key is absent.
	GetSessionData(ctx context.Context, sessionID, key string) ([]byte, error)
	// PutSessionData creates or overwrites the key.
	PutSessionData(ctx context.Context, sessionID, key string, value []byte) error
	// DeleteSessionData is a no-op when the key is absent.
	DeleteSessionData(ctx context.Context, sessionID, key string) error
}

// Updater is an optional Backend capability for atomic read-modify-write of a
// single key. fn receives nil when the key is absent and returns nil to delete.
type Updater interface {
	UpdateSessionData(ctx context.Context, sessionID, key string, fn func(current []byte) ([]byte, error)) error
}

// BackendKind reports which backend a Store selected.
type BackendKind string

const (
	BackendNative   BackendKind = "native"
	BackendFallback BackendKind = "fallback"
)

// SelectBackend returns host when it implements Backend and a new
// FallbackBackend otherwise.
func SelectBackend(host any) (Backend, BackendKind) {
	if b, ok := host.(Backend); ok && b != nil {
		return b, BackendNative
	}
	return NewFallbackBackend(), BackendFallback
}
