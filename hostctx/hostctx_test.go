package hostctx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersGetCaseInsensitiveFirstWins(t *testing.T) {
	h := Headers{
		{Name: "X-Session-Id", Value: "first"},
		{Name: "x-session-id", Value: "second"},
		{Name: "Other", Value: "o"},
	}
	v, ok := h.Get("X-SESSION-ID")
	if !ok || v != "first" {
		t.Fatalf("expected first match, got %q ok=%v", v, ok)
	}
	if _, ok := h.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
	if v := h.Value("other"); v != "o" {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestFromHTTPIsDeterministic(t *testing.T) {
	hh := http.Header{}
	hh.Add("X-B", "2")
	hh.Add("X-A", "1")
	hh.Add("X-A", "1b")

	got := FromHTTP(hh)
	want := Headers{{"X-A", "1"}, {"X-A", "1b"}, {"X-B", "2"}}
	if len(got) != len(want) {
		t.Fatalf("len: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %+v want %+v", i, got[i], want[i])
		}
	}
	if FromHTTP(nil) != nil {
		t.Fatalf("expected nil for empty header")
	}
}

func TestAccessorsTolerateMissingCapabilities(t *testing.T) {
	cases := map[string]context.Context{
		"no host":      context.Background(),
		"opaque value": WithHost(context.Background(), struct{ x int }{1}),
		"nil ctx":      nil,
	}
	for name, ctx := range cases {
		t.Run(name, func(t *testing.T) {
			if h := HeadersOf(ctx); len(h) != 0 {
				t.Fatalf("expected no headers, got %v", h)
			}
			if k := TransportOf(ctx); k != TransportUnknown {
				t.Fatalf("expected unknown transport, got %s", k)
			}
			if _, ok := IdentityOf(ctx); ok {
				t.Fatalf("expected no identity")
			}
		})
	}
}

func TestStaticHost(t *testing.T) {
	ctx := WithHost(context.Background(), Static{
		Header:    Headers{{"x-client-region", "eu"}},
		Kind:      TransportHTTPPersistent,
		SessionID: "abc",
	})
	if TransportOf(ctx) != TransportHTTPPersistent {
		t.Fatalf("unexpected transport")
	}
	if id, ok := IdentityOf(ctx); !ok || id != "abc" {
		t.Fatalf("unexpected identity %q %v", id, ok)
	}
	if HeadersOf(ctx).Value("X-Client-Region") != "eu" {
		t.Fatalf("header not visible")
	}

	empty := WithHost(context.Background(), Static{})
	if TransportOf(empty) != TransportUnknown {
		t.Fatalf("zero Static should report unknown")
	}
	if _, ok := IdentityOf(empty); ok {
		t.Fatalf("zero Static should report no identity")
	}
}

func TestRequestHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	r.Header.Set("X-Session-Id", "s-1")

	host := FromRequest(r, TransportHTTPShortLived)
	ctx := WithHost(r.Context(), host)
	if HeadersOf(ctx).Value("x-session-id") != "s-1" {
		t.Fatalf("header not carried")
	}
	if _, ok := IdentityOf(ctx); ok {
		t.Fatalf("no identity expected before WithIdentity")
	}

	ctx = WithHost(r.Context(), host.WithIdentity("pre"))
	if id, _ := IdentityOf(ctx); id != "pre" {
		t.Fatalf("identity not carried: %q", id)
	}
	if host.HTTPRequest() != r {
		t.Fatalf("request not retained")
	}
}

func TestLocalHost(t *testing.T) {
	ctx := WithHost(context.Background(), Local{})
	if TransportOf(ctx) != TransportLocal || TransportLocal.RequiresIsolation() {
		t.Fatalf("local transport misreported")
	}
}

func TestParseTransportKind(t *testing.T) {
	cases := map[string]TransportKind{
		"stdio":           TransportLocal,
		"streamable-http": TransportHTTPShortLived,
		"SSE":             TransportHTTPPersistent,
		"carrier-pigeon":  TransportUnknown,
	}
	for in, want := range cases {
		if got := ParseTransportKind(in); got != want {
			t.Errorf("ParseTransportKind(%q) = %s, want %s", in, got, want)
		}
	}
	if !TransportHTTPShortLived.RequiresIsolation() || !TransportHTTPPersistent.RequiresIsolation() {
		t.Fatalf("http kinds must require isolation")
	}
	if TransportUnknown.RequiresIsolation() {
		t.Fatalf("unknown must not require isolation")
	}
}
