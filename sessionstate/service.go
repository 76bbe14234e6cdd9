package sessionstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ggoodman/mcp-session-go/hostctx"
	"github.com/ggoodman/mcp-session-go/identity"
	"github.com/ggoodman/mcp-session-go/internal/jobs"
	"github.com/ggoodman/mcp-session-go/internal/logctx"
	"github.com/ggoodman/mcp-session-go/sessions"
	"github.com/ggoodman/mcp-session-go/sessions/ttlstore"
)

var (
	ErrEmptyToken    = errors.New("token must not be empty")
	ErrEmptyContext  = errors.New("at least one of organization, workspace or project is required")
	ErrTokenRequired = errors.New("no token available: set a token for this session or configure a default token")
)

// Token sources reported by TokenStatus.
const (
	TokenSourceSession     = "session"
	TokenSourceEnvironment = "environment"
	TokenSourceNone        = "none"
)

type Service struct {
	store         *sessions.Store
	resolver      *identity.Resolver
	jobs          *jobs.Pool
	legacy        *ttlstore.Store
	fallbackToken string
	log           *slog.Logger
}

func New(opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if _, ok := log.Handler().(logctx.Handler); !ok {
		log = logctx.New(log.Handler())
	}

	host := o.host
	if o.backend != nil {
		host = o.backend
	}
	store := sessions.NewStore(host, sessions.WithLogger(log), sessions.WithMaxValueBytes(o.maxValueBytes))

	s := &Service{
		store:         store,
		jobs:          jobs.New(jobs.WithLimit(o.workers), jobs.WithTimeout(o.jobTimeout), jobs.WithLogger(log)),
		legacy:        o.legacy,
		fallbackToken: strings.TrimSpace(o.fallbackToken),
		log:           log,
	}
	ropts := []identity.Option{
		identity.WithBearerFallback(o.bearer),
		identity.WithMetadata(s, s.jobs),
		identity.WithLogger(log),
	}
	if len(o.headers) > 0 {
		ropts = append(ropts, identity.WithSessionHeaders(o.headers...))
	}
	s.resolver = identity.NewResolver(ropts...)

	log.Info("sessionstate.ready",
		slog.String("backend", string(store.Kind())),
		slog.Bool("legacy_tokens", o.legacy != nil),
		slog.Bool("bearer_fallback", o.bearer),
	)
	return s
}

// Backend reports which storage backend was selected.
func (s *Service) Backend() sessions.BackendKind { return s.store.Kind() }

// Resolve returns the session id for ctx without touching any state.
func (s *Service) Resolve(ctx context.Context) (string, error) {
	_, id, err := s.session(ctx)
	return id, err
}

// Wait blocks until pending client-metadata writes finish.
func (s *Service) Wait() { s.jobs.Wait() }

// Close cancels pending client-metadata writes and waits for them. Stored
// state is left intact.
func (s *Service) Close() { s.jobs.Close() }

func (s *Service) session(ctx context.Context) (context.Context, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id, src, err := s.resolver.ResolveSource(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "sessionstate.resolve.failed", slog.String("err", err.Error()))
		return ctx, "", err
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: id,
		Transport: string(hostctx.TransportOf(ctx)),
		Backend:   string(s.store.Kind()),
	})
	s.log.DebugContext(ctx, "sessionstate.resolved", slog.String("source", string(src)))
	return ctx, id, nil
}

// --- Token ---

// SetToken stores the token for the caller's session after trimming it.
func (s *Service) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	ctx, id, err := s.session(ctx)
	if err != nil {
		return err
	}
	if s.legacy != nil {
		err = s.legacy.SetToken(ctx, id, token)
	} else {
		err = s.store.Set(ctx, id, sessions.NamespaceToken, sessions.KeyToken, token)
	}
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	s.log.InfoContext(ctx, "sessionstate.token.set", slog.String("token", MaskToken(token)))
	return nil
}

// Token returns the caller's own token, if any. The fallback token is not
// consulted; use ActiveToken for that.
func (s *Service) Token(ctx context.Context) (string, bool, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return "", false, err
	}
	return s.token(ctx, id)
}

func (s *Service) token(ctx context.Context, id string) (string, bool, error) {
	if s.legacy != nil {
		tok, ok := s.legacy.Token(ctx, id)
		return tok, ok, nil
	}
	var tok string
	found, err := s.store.Get(ctx, id, sessions.NamespaceToken, sessions.KeyToken, &tok)
	if err != nil {
		return "", false, fmt.Errorf("get token: %w", err)
	}
	return tok, found, nil
}

func (s *Service) ClearToken(ctx context.Context) error {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return err
	}
	return s.clearToken(ctx, id)
}

func (s *Service) clearToken(ctx context.Context, id string) error {
	if s.legacy != nil {
		s.legacy.ClearToken(ctx, id)
		return nil
	}
	if err := s.store.ClearNamespace(ctx, id, sessions.NamespaceToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// TokenStatus describes the token that would be used for the caller.
type TokenStatus struct {
	HasToken bool   `json:"has_token"`
	Source   string `json:"source"`
	Preview  string `json:"preview,omitempty"`
}

func (s *Service) TokenStatus(ctx context.Context) (*TokenStatus, error) {
	tok, ok, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case ok:
		return &TokenStatus{HasToken: true, Source: TokenSourceSession, Preview: MaskToken(tok)}, nil
	case s.fallbackToken != "":
		return &TokenStatus{HasToken: true, Source: TokenSourceEnvironment, Preview: MaskToken(s.fallbackToken)}, nil
	default:
		return &TokenStatus{Source: TokenSourceNone}, nil
	}
}

// ActiveToken returns the session token, else the fallback token.
func (s *Service) ActiveToken(ctx context.Context) (string, error) {
	tok, ok, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		return tok, nil
	}
	if s.fallbackToken != "" {
		return s.fallbackToken, nil
	}
	return "", ErrTokenRequired
}

// MaskToken returns a preview that never reveals a short token.
func MaskToken(token string) string {
	if len(token) > 12 {
		return token[:8] + "..." + token[len(token)-4:]
	}
	return "***"
}
