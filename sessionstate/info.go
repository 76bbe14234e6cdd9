package sessionstate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ggoodman/mcp-session-go/clientmeta"
	"github.com/ggoodman/mcp-session-go/hostctx"
	"github.com/ggoodman/mcp-session-go/sessions"
)

// Info is a read-only summary of the caller's session. It never contains the
// token.
type Info struct {
	SessionID   string                `json:"session_id"`
	Transport   hostctx.TransportKind `json:"transport"`
	Backend     sessions.BackendKind  `json:"backend"`
	HasToken    bool                  `json:"has_token"`
	Context     ContextTriple         `json:"context"`
	Preferences map[string]any        `json:"preferences"`
	Client      *clientmeta.Metadata  `json:"client,omitempty"`
}

func (s *Service) SessionInfo(ctx context.Context) (*Info, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	_, hasToken, err := s.token(ctx, id)
	if err != nil {
		return nil, err
	}
	triple, err := s.context(ctx, id)
	if err != nil {
		return nil, err
	}
	prefs, err := s.store.Preferences(ctx, id)
	if err != nil {
		return nil, err
	}
	client, _, err := s.clientContext(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Info{
		SessionID:   id,
		Transport:   hostctx.TransportOf(ctx),
		Backend:     s.store.Kind(),
		HasToken:    hasToken,
		Context:     *triple,
		Preferences: prefs,
		Client:      client,
	}, nil
}

// ClearOptions selects the groups ClearSession removes.
type ClearOptions struct {
	Token       bool `json:"clear_token"`
	Context     bool `json:"clear_context"`
	Preferences bool `json:"clear_preferences"`
	Client      bool `json:"clear_client"`
}

// ClearSession removes the selected groups and reports which were cleared, in
// a fixed order.
func (s *Service) ClearSession(ctx context.Context, opts ClearOptions) ([]string, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	var cleared []string
	if opts.Token {
		if err := s.clearToken(ctx, id); err != nil {
			return cleared, err
		}
		cleared = append(cleared, "token")
	}
	if opts.Context {
		if err := s.clearContext(ctx, id); err != nil {
			return cleared, err
		}
		cleared = append(cleared, "context")
	}
	if opts.Preferences {
		if err := s.store.ClearNamespace(ctx, id, sessions.NamespacePreferences); err != nil {
			return cleared, fmt.Errorf("clear preferences: %w", err)
		}
		cleared = append(cleared, "preferences")
	}
	if opts.Client {
		if err := s.store.ClearNamespace(ctx, id, sessions.NamespaceClient); err != nil {
			return cleared, fmt.Errorf("clear client context: %w", err)
		}
		cleared = append(cleared, "client_context")
	}
	s.log.InfoContext(ctx, "sessionstate.cleared", slog.Any("groups", cleared))
	return cleared, nil
}
