// Package backendtest is a conformance suite for sessions.Backend
// implementations.
package backendtest

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/mcp-session-go/sessions"
	"github.com/google/uuid"
)

// BackendFactory creates a new, empty Backend for one test.
type BackendFactory func(t *testing.T) sessions.Backend

// RunBackendTests runs the complete Backend test suite against the provided factory.
func RunBackendTests(t *testing.T, factory BackendFactory) {
	t.Run("Data_AbsentKeyIsNil", func(t *testing.T) { testAbsentKey(t, factory) })
	t.Run("Data_PutGetRoundTrip", func(t *testing.T) { testRoundTrip(t, factory) })
	t.Run("Data_Overwrite", func(t *testing.T) { testOverwrite(t, factory) })
	t.Run("Data_DeleteIsIdempotent", func(t *testing.T) { testDeleteIdempotent(t, factory) })
	t.Run("Data_IsolationBetweenSessions", func(t *testing.T) { testIsolation(t, factory) })
	t.Run("Data_ValuesAreNotAliased", func(t *testing.T) { testNoAliasing(t, factory) })
	t.Run("Data_ConcurrentWritersDifferentKeys", func(t *testing.T) { testConcurrentDifferentKeys(t, factory) })
	t.Run("Data_ConcurrentSessions", func(t *testing.T) { testConcurrentSessions(t, factory) })
	t.Run("Update_WhenSupported", func(t *testing.T) { testUpdater(t, factory) })
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testAbsentKey(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	v, err := b.GetSessionData(ctx, "missing-session", "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil value, got %q", v)
	}
}

func testRoundTrip(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	if err := b.PutSessionData(ctx, "s1", "token", []byte(`"abc"`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := b.GetSessionData(ctx, "s1", "token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != `"abc"` {
		t.Fatalf("expected %q, got %q", `"abc"`, v)
	}
}

func testOverwrite(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	_ = b.PutSessionData(ctx, "s1", "k", []byte("1"))
	if err := b.PutSessionData(ctx, "s1", "k", []byte("2")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, _ := b.GetSessionData(ctx, "s1", "k")
	if string(v) != "2" {
		t.Fatalf("expected overwrite, got %q", v)
	}
}

func testDeleteIdempotent(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	if err := b.DeleteSessionData(ctx, "never", "k"); err != nil {
		t.Fatalf("delete absent session: %v", err)
	}
	_ = b.PutSessionData(ctx, "s1", "a", []byte("1"))
	_ = b.PutSessionData(ctx, "s1", "b", []byte("2"))
	for i := 0; i < 2; i++ {
		if err := b.DeleteSessionData(ctx, "s1", "a"); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if v, _ := b.GetSessionData(ctx, "s1", "a"); v != nil {
		t.Fatalf("expected a removed, got %q", v)
	}
	if v, _ := b.GetSessionData(ctx, "s1", "b"); string(v) != "2" {
		t.Fatalf("sibling key affected: %q", v)
	}
}

func testIsolation(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	_ = b.PutSessionData(ctx, "tenant-a", "token", []byte("A"))
	_ = b.PutSessionData(ctx, "tenant-b", "token", []byte("B"))

	if v, _ := b.GetSessionData(ctx, "tenant-a", "token"); string(v) != "A" {
		t.Fatalf("tenant-a sees %q", v)
	}
	if v, _ := b.GetSessionData(ctx, "tenant-b", "token"); string(v) != "B" {
		t.Fatalf("tenant-b sees %q", v)
	}
	_ = b.DeleteSessionData(ctx, "tenant-a", "token")
	if v, _ := b.GetSessionData(ctx, "tenant-b", "token"); string(v) != "B" {
		t.Fatalf("delete leaked across sessions: %q", v)
	}
}

func testNoAliasing(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	in := []byte("value")
	_ = b.PutSessionData(ctx, "s1", "k", in)
	in[0] = 'X'

	out, _ := b.GetSessionData(ctx, "s1", "k")
	if string(out) != "value" {
		t.Fatalf("stored value aliased caller slice: %q", out)
	}
	out[0] = 'Y'
	again, _ := b.GetSessionData(ctx, "s1", "k")
	if string(again) != "value" {
		t.Fatalf("returned value aliased storage: %q", again)
	}
}

func testConcurrentDifferentKeys(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + strconv.Itoa(i)
			if err := b.PutSessionData(ctx, "shared", key, []byte(strconv.Itoa(i))); err != nil {
				t.Errorf("put %s: %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		key := "k" + strconv.Itoa(i)
		v, err := b.GetSessionData(ctx, "shared", key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		if string(v) != strconv.Itoa(i) {
			t.Fatalf("key %s: got %q", key, v)
		}
	}
}

func testConcurrentSessions(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := testCtx(t)

	const n = 16
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := b.PutSessionData(ctx, id, "token", []byte(id)); err != nil {
					t.Errorf("put: %v", err)
					return
				}
				v, err := b.GetSessionData(ctx, id, "token")
				if err != nil {
					t.Errorf("get: %v", err)
					return
				}
				if !bytes.Equal(v, []byte(id)) {
					t.Errorf("session %s read %q", id, v)
					return
				}
			}
		}(id)
	}
	wg.Wait()
}

func testUpdater(t *testing.T, factory BackendFactory) {
	b := factory(t)
	u, ok := b.(sessions.Updater)
	if !ok {
		t.Skip("backend does not implement sessions.Updater")
	}
	ctx := testCtx(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := u.UpdateSessionData(ctx, "s1", "counter", func(cur []byte) ([]byte, error) {
				c := 0
				if cur != nil {
					c, _ = strconv.Atoi(string(cur))
				}
				return []byte(strconv.Itoa(c + 1)), nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	v, _ := b.GetSessionData(ctx, "s1", "counter")
	if string(v) != strconv.Itoa(n) {
		t.Fatalf("expected %d after atomic updates, got %q", n, v)
	}

	if err := u.UpdateSessionData(ctx, "s1", "counter", func([]byte) ([]byte, error) { return nil, nil }); err != nil {
		t.Fatalf("update delete: %v", err)
	}
	if v, _ := b.GetSessionData(ctx, "s1", "counter"); v != nil {
		t.Fatalf("expected deletion, got %q", v)
	}
}
