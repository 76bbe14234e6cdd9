package sessions

import (
	"context"
	"sort"
	"sync"
)

// FallbackBackend is the process-local Backend used when the host offers no
// storage of its own. Data lives until removed or the process exits.
type FallbackBackend struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewFallbackBackend returns an empty backend. No map is allocated until the
// first write.
func NewFallbackBackend() *FallbackBackend { return &FallbackBackend{} }

func (b *FallbackBackend) GetSessionData(_ context.Context, sessionID, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[sessionID][key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (b *FallbackBackend) PutSessionData(_ context.Context, sessionID, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putLocked(sessionID, key, value)
	return nil
}

func (b *FallbackBackend) DeleteSessionData(_ context.Context, sessionID, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteLocked(sessionID, key)
	return nil
}

// UpdateSessionData runs fn under the write lock.
func (b *FallbackBackend) UpdateSessionData(_ context.Context, sessionID, key string, fn func([]byte) ([]byte, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var cur []byte
	if v, ok := b.data[sessionID][key]; ok {
		cur = append([]byte(nil), v...)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		b.deleteLocked(sessionID, key)
		return nil
	}
	b.putLocked(sessionID, key, next)
	return nil
}

// Sessions lists the ids that currently hold at least one key.
func (b *FallbackBackend) Sessions() []string {
	b.mu.RLock()
	ids := make([]string, 0, len(b.data))
	for id := range b.data {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (b *FallbackBackend) putLocked(sessionID, key string, value []byte) {
	if b.data == nil {
		b.data = make(map[string]map[string][]byte)
	}
	inner, ok := b.data[sessionID]
	if !ok {
		inner = make(map[string][]byte)
		b.data[sessionID] = inner
	}
	inner[key] = append([]byte(nil), value...)
}

func (b *FallbackBackend) deleteLocked(sessionID, key string) {
	inner, ok := b.data[sessionID]
	if !ok {
		return
	}
	delete(inner, key)
	if len(inner) == 0 {
		delete(b.data, sessionID)
	}
}

var (
	_ Backend = (*FallbackBackend)(nil)
	_ Updater = (*FallbackBackend)(nil)
)
