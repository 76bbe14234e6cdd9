package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ggoodman/mcp-session-go/clientmeta"
	"github.com/ggoodman/mcp-session-go/hostctx"
)

func hostCtx(h hostctx.Static) context.Context {
	return hostctx.WithHost(context.Background(), h)
}

func TestResolvePriority(t *testing.T) {
	cases := []struct {
		name    string
		host    hostctx.Static
		bearer  bool
		want    string
		source  Source
		wantErr bool
	}{
		{
			name:   "header beats host identity",
			host:   hostctx.Static{Header: hostctx.Headers{{Name: "X-Session-ID", Value: "hdr"}}, SessionID: "pre", Kind: hostctx.TransportHTTPShortLived},
			want:   "hdr",
			source: SourceHeader,
		},
		{
			name:   "host identity",
			host:   hostctx.Static{SessionID: "pre", Kind: hostctx.TransportHTTPPersistent},
			want:   "pre",
			source: SourceHost,
		},
		{
			name:   "local transport defaults",
			host:   hostctx.Static{Kind: hostctx.TransportLocal},
			want:   DefaultSessionID,
			source: SourceDefault,
		},
		{
			name:   "unknown transport defaults",
			host:   hostctx.Static{},
			want:   DefaultSessionID,
			source: SourceDefault,
		},
		{
			name:    "http without identity fails",
			host:    hostctx.Static{Kind: hostctx.TransportHTTPShortLived},
			wantErr: true,
		},
		{
			name:    "empty header value is ignored",
			host:    hostctx.Static{Header: hostctx.Headers{{Name: "x-session-id", Value: ""}}, Kind: hostctx.TransportHTTPPersistent},
			wantErr: true,
		},
		{
			name:    "bearer ignored unless enabled",
			host:    hostctx.Static{Header: hostctx.Headers{{Name: "Authorization", Value: "Bearer tok"}}, Kind: hostctx.TransportHTTPShortLived},
			wantErr: true,
		},
		{
			name:   "bearer when enabled",
			host:   hostctx.Static{Header: hostctx.Headers{{Name: "Authorization", Value: "Bearer tok"}}, Kind: hostctx.TransportHTTPShortLived},
			bearer: true,
			want:   BearerSessionID("tok"),
			source: SourceBearer,
		},
		{
			name: "bearer never beats header",
			host: hostctx.Static{Header: hostctx.Headers{
				{Name: "Authorization", Value: "Bearer tok"},
				{Name: "x-session-id", Value: "hdr"},
			}, Kind: hostctx.TransportHTTPShortLived},
			bearer: true,
			want:   "hdr",
			source: SourceHeader,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(WithBearerFallback(tc.bearer))
			id, src, err := r.ResolveSource(hostCtx(tc.host))
			if tc.wantErr {
				if !errors.Is(err, ErrSessionRequired) {
					t.Fatalf("expected ErrSessionRequired, got id=%q err=%v", id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if id != tc.want || src != tc.source {
				t.Fatalf("got (%q, %s), want (%q, %s)", id, src, tc.want, tc.source)
			}
		})
	}
}

func TestResolveWithoutHostIsDefault(t *testing.T) {
	id, err := NewResolver().Resolve(context.Background())
	if err != nil || id != DefaultSessionID {
		t.Fatalf("got %q %v", id, err)
	}
}

func TestSessionRequiredErrorNamesHeader(t *testing.T) {
	_, err := NewResolver().Resolve(hostCtx(hostctx.Static{Kind: hostctx.TransportHTTPPersistent}))
	var sre *SessionRequiredError
	if !errors.As(err, &sre) {
		t.Fatalf("expected *SessionRequiredError, got %T", err)
	}
	if sre.Transport != hostctx.TransportHTTPPersistent {
		t.Fatalf("unexpected transport %s", sre.Transport)
	}
	if !strings.Contains(err.Error(), HeaderSessionID) {
		t.Fatalf("message should name the header: %s", err)
	}
}

func TestCustomSessionHeaders(t *testing.T) {
	r := NewResolver(WithSessionHeaders("mcp-session-id", "x-session-id"))
	id, err := r.Resolve(hostCtx(hostctx.Static{
		Header: hostctx.Headers{{Name: "X-Session-Id", Value: "b"}, {Name: "Mcp-Session-Id", Value: "a"}},
		Kind:   hostctx.TransportHTTPShortLived,
	}))
	if err != nil || id != "a" {
		t.Fatalf("expected first configured header to win, got %q %v", id, err)
	}
}

func TestBearerSessionID(t *testing.T) {
	// sha256("abc") = ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad
	if got := BearerSessionID("abc"); got != "ba7816bf8f01cfea414140de5dae2223" {
		t.Fatalf("unexpected id %q", got)
	}
	if BearerSessionID("a") == BearerSessionID("b") {
		t.Fatalf("distinct tokens must map to distinct ids")
	}
}

type recordingSink struct {
	mu  sync.Mutex
	got map[string]clientmeta.Metadata
}

func (s *recordingSink) StoreClientMetadata(_ context.Context, id string, md clientmeta.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.got == nil {
		s.got = make(map[string]clientmeta.Metadata)
	}
	s.got[id] = md
	return nil
}

// syncSubmitter runs jobs inline.
type syncSubmitter struct {
	accept bool
	calls  int
}

func (s *syncSubmitter) Submit(_ string, fn func(context.Context) error) bool {
	s.calls++
	if !s.accept {
		return false
	}
	_ = fn(context.Background())
	return true
}

func TestHeaderResolutionStoresMetadata(t *testing.T) {
	sink := &recordingSink{}
	sub := &syncSubmitter{accept: true}
	r := NewResolver(WithMetadata(sink, sub))

	id, err := r.Resolve(hostCtx(hostctx.Static{
		Header: hostctx.Headers{
			{Name: "x-session-id", Value: "s1"},
			{Name: "x-client-region", Value: "eu"},
		},
		Kind: hostctx.TransportHTTPShortLived,
	}))
	if err != nil || id != "s1" {
		t.Fatalf("resolve: %q %v", id, err)
	}
	md, ok := sink.got["s1"]
	if !ok || md.Region != "eu" {
		t.Fatalf("metadata not stored: %+v", sink.got)
	}
}

func TestMetadataSkippedWhenEmptyOrNotHeaderPath(t *testing.T) {
	sink := &recordingSink{}
	sub := &syncSubmitter{accept: true}
	r := NewResolver(WithMetadata(sink, sub))

	_, _ = r.Resolve(hostCtx(hostctx.Static{Header: hostctx.Headers{{Name: "x-session-id", Value: "s1"}}}))
	_, _ = r.Resolve(hostCtx(hostctx.Static{Header: hostctx.Headers{{Name: "x-client-region", Value: "eu"}}, SessionID: "pre"}))
	if sub.calls != 0 {
		t.Fatalf("expected no jobs, got %d", sub.calls)
	}
}

func TestMetadataDroppedWhenPoolFull(t *testing.T) {
	sink := &recordingSink{}
	sub := &syncSubmitter{accept: false}
	r := NewResolver(WithMetadata(sink, sub))

	id, err := r.Resolve(hostCtx(hostctx.Static{Header: hostctx.Headers{
		{Name: "x-session-id", Value: "s1"},
		{Name: "x-client-agent", Value: "cli"},
	}}))
	if err != nil || id != "s1" {
		t.Fatalf("resolution must not depend on metadata storage: %q %v", id, err)
	}
	if sub.calls != 1 || len(sink.got) != 0 {
		t.Fatalf("unexpected sink state calls=%d got=%v", sub.calls, sink.got)
	}
}
