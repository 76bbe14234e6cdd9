package hostctx

import (
	"context"
	"net/http"
)

// HeaderCarrier is implemented by hosts that can expose inbound headers.
type HeaderCarrier interface {
	Headers() Headers
}

// TransportCarrier is implemented by hosts that know their transport kind.
type TransportCarrier interface {
	TransportKind() TransportKind
}

// IdentityCarrier is implemented by hosts that have already assigned the
// connection a session identity (for example an MCP session id negotiated at
// initialize). The boolean is false when no identity exists yet.
type IdentityCarrier interface {
	Identity() (string, bool)
}

type hostKey struct{}

// WithHost attaches the host request value to ctx.
func WithHost(ctx context.Context, host any) context.Context {
	return context.WithValue(ctx, hostKey{}, host)
}

// HostFrom returns the host value attached with WithHost.
func HostFrom(ctx context.Context) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	host := ctx.Value(hostKey{})
	return host, host != nil
}

// HeadersOf returns the request headers, or nil when unavailable.
func HeadersOf(ctx context.Context) Headers {
	host, _ := HostFrom(ctx)
	if hc, ok := host.(HeaderCarrier); ok {
		return hc.Headers()
	}
	return nil
}

// TransportOf returns the transport kind, or TransportUnknown.
func TransportOf(ctx context.Context) TransportKind {
	host, _ := HostFrom(ctx)
	if tc, ok := host.(TransportCarrier); ok {
		if k := tc.TransportKind(); k != "" {
			return k
		}
	}
	return TransportUnknown
}

// IdentityOf returns a pre-established non-empty session identity.
func IdentityOf(ctx context.Context) (string, bool) {
	host, _ := HostFrom(ctx)
	ic, ok := host.(IdentityCarrier)
	if !ok {
		return "", false
	}
	id, ok := ic.Identity()
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Local is the host value for single-client local transports.
type Local struct{}

func (Local) TransportKind() TransportKind { return TransportLocal }
func (Local) Headers() Headers             { return nil }

// Static is a host value assembled from plain fields.
type Static struct {
	Header    Headers
	Kind      TransportKind
	SessionID string
}

func (s Static) Headers() Headers { return s.Header }

func (s Static) TransportKind() TransportKind {
	if s.Kind == "" {
		return TransportUnknown
	}
	return s.Kind
}

func (s Static) Identity() (string, bool) { return s.SessionID, s.SessionID != "" }

// Request adapts a net/http request.
type Request struct {
	r        *http.Request
	kind     TransportKind
	identity string
	headers  Headers
}

// FromRequest captures the headers of r. The request body is never touched.
func FromRequest(r *http.Request, kind TransportKind) *Request {
	req := &Request{r: r, kind: kind}
	if r != nil {
		req.headers = FromHTTP(r.Header)
	}
	return req
}

// WithIdentity returns a copy that reports id as the pre-established identity.
func (r *Request) WithIdentity(id string) *Request {
	cp := *r
	cp.identity = id
	return &cp
}

func (r *Request) Headers() Headers             { return r.headers }
func (r *Request) TransportKind() TransportKind { return r.kind }
func (r *Request) Identity() (string, bool)     { return r.identity, r.identity != "" }

// HTTPRequest returns the wrapped request.
func (r *Request) HTTPRequest() *http.Request { return r.r }

var (
	_ HeaderCarrier    = Local{}
	_ TransportCarrier = Local{}
	_ HeaderCarrier    = Static{}
	_ TransportCarrier = Static{}
	_ IdentityCarrier  = Static{}
	_ HeaderCarrier    = (*Request)(nil)
	_ TransportCarrier = (*Request)(nil)
	_ IdentityCarrier  = (*Request)(nil)
)
