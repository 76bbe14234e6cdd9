// Package identity assigns every request a stable session id.
//
// Resolution is a strict priority chain; the first rule that produces an id
// wins:
//
//  1. an explicit session header (x-session-id by default)
//  2. an identity the host already established for the connection
//  3. a hash of the bearer credential, only when WithBearerFallback is enabled
//  4. an error when the transport must isolate callers
//  5. DefaultSessionID
//
// A session id is a correlation key, not proof of who the caller is.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ggoodman/mcp-session-go/clientmeta"
	"github.com/ggoodman/mcp-session-go/hostctx"
)

// DefaultSessionID is shared by every caller of a transport that does not
// require isolation.
const DefaultSessionID = "default"

// HeaderSessionID is the explicit session header.
const HeaderSessionID = "x-session-id"

// ErrSessionRequired is matched by *SessionRequiredError.
var ErrSessionRequired = errors.New("session identifier required")

// SessionRequiredError is returned when an isolating transport delivers a
// request without any session identifier.
type SessionRequiredError struct {
	Transport hostctx.TransportKind
	Header    string
}

func (e *SessionRequiredError) Error() string {
	return fmt.Sprintf("missing session identifier on %s transport: send the %s header with a stable per-client value", e.Transport, e.Header)
}

func (e *SessionRequiredError) Is(target error) bool { return target == ErrSessionRequired }

// MetadataSink persists client metadata for a session.
type MetadataSink interface {
	StoreClientMetadata(ctx context.Context, sessionID string, md clientmeta.Metadata) error
}

// Submitter runs background work without blocking; it reports false when the
// job was not accepted. *jobs.Pool satisfies it.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

type Option func(*Resolver)

// WithSessionHeaders replaces the explicit session header names, consulted in
// order.
func WithSessionHeaders(names ...string) Option {
	return func(r *Resolver) {
		if len(names) > 0 {
			r.headers = append([]string(nil), names...)
		}
	}
}

// WithBearerFallback derives an id from the Authorization bearer token when
// no explicit header or host identity is present.
func WithBearerFallback(enabled bool) Option { return func(r *Resolver) { r.bearer = enabled } }

// WithMetadata enables the metadata side effect of header-based resolution.
func WithMetadata(sink MetadataSink, jobs Submitter) Option {
	return func(r *Resolver) {
		r.sink = sink
		r.jobs = jobs
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

type Resolver struct {
	headers   []string
	bearer    bool
	sink      MetadataSink
	jobs      Submitter
	extractor *clientmeta.Extractor
	log       *slog.Logger
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		headers: []string{HeaderSessionID},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.extractor = clientmeta.NewExtractor(r.log)
	return r
}

// Source names the rule that produced a session id.
type Source string

const (
	SourceHeader  Source = "header"
	SourceHost    Source = "host"
	SourceBearer  Source = "bearer"
	SourceDefault Source = "default"
)

// Resolve returns the session id for the request carried by ctx.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	id, _, err := r.ResolveSource(ctx)
	return id, err
}

// ResolveSource is Resolve that also reports which rule matched.
func (r *Resolver) ResolveSource(ctx context.Context) (string, Source, error) {
	if _, ok := hostctx.HostFrom(ctx); !ok {
		r.log.DebugContext(ctxOrBackground(ctx), "identity.no_host")
		return DefaultSessionID, SourceDefault, nil
	}

	headers := hostctx.HeadersOf(ctx)
	for _, name := range r.headers {
		if v, ok := headers.Get(name); ok && v != "" {
			r.captureMetadata(ctx, v, headers)
			return v, SourceHeader, nil
		}
	}

	if id, ok := hostctx.IdentityOf(ctx); ok {
		return id, SourceHost, nil
	}

	if r.bearer {
		if id, ok := bearerID(headers); ok {
			return id, SourceBearer, nil
		}
	}

	kind := hostctx.TransportOf(ctx)
	if kind.RequiresIsolation() {
		return "", "", &SessionRequiredError{Transport: kind, Header: r.headers[0]}
	}
	return DefaultSessionID, SourceDefault, nil
}

// captureMetadata schedules storage of client metadata. It never blocks the
// caller and a failure only produces a log line.
func (r *Resolver) captureMetadata(ctx context.Context, sessionID string, headers hostctx.Headers) {
	if r.sink == nil || r.jobs == nil {
		return
	}
	md := r.extractor.Extract(ctx, headers)
	if md.IsEmpty() {
		return
	}
	ok := r.jobs.Submit("store_client_metadata", func(jobCtx context.Context) error {
		return r.sink.StoreClientMetadata(jobCtx, sessionID, md)
	})
	if !ok {
		r.log.WarnContext(ctx, "identity.metadata.dropped", slog.String("reason", "no capacity"))
	}
}

// BearerSessionID derives the compatibility session id for a bearer token.
func BearerSessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:32]
}

func bearerID(headers hostctx.Headers) (string, bool) {
	auth, ok := headers.Get("authorization")
	if !ok {
		return "", false
	}
	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", false
	}
	return BearerSessionID(token), true
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
