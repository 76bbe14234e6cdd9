package sessionstate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggoodman/mcp-session-go/sessions"
)

// ContextTriple is the selected organization, workspace and project. Absent
// fields encode as JSON null.
type ContextTriple struct {
	Organization *string `json:"organization"`
	Workspace    *string `json:"workspace"`
	Project      *string `json:"project"`
}

// ContextUpdate names the fields to set. Empty fields are left unchanged.
type ContextUpdate struct {
	Organization string `json:"organization,omitempty"`
	Workspace    string `json:"workspace,omitempty"`
	Project      string `json:"project,omitempty"`
}

// SetContext writes each non-empty field in turn and returns the resulting
// triple. The writes are not transactional: a failure part way through leaves
// the earlier fields updated.
func (s *Service) SetContext(ctx context.Context, upd ContextUpdate) (*ContextTriple, error) {
	fields := []struct{ key, value string }{
		{sessions.KeyOrganization, strings.TrimSpace(upd.Organization)},
		{sessions.KeyWorkspace, strings.TrimSpace(upd.Workspace)},
		{sessions.KeyProject, strings.TrimSpace(upd.Project)},
	}
	hasValue := false
	for _, f := range fields {
		if f.value != "" {
			hasValue = true
			break
		}
	}
	if !hasValue {
		return nil, ErrEmptyContext
	}

	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := s.store.Set(ctx, id, sessions.NamespaceContext, f.key, f.value); err != nil {
			return nil, fmt.Errorf("set %s: %w", f.key, err)
		}
	}
	s.log.InfoContext(ctx, "sessionstate.context.set")
	return s.context(ctx, id)
}

func (s *Service) Context(ctx context.Context) (*ContextTriple, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.context(ctx, id)
}

func (s *Service) context(ctx context.Context, id string) (*ContextTriple, error) {
	var out ContextTriple
	for _, f := range []struct {
		key string
		dst **string
	}{
		{sessions.KeyOrganization, &out.Organization},
		{sessions.KeyWorkspace, &out.Workspace},
		{sessions.KeyProject, &out.Project},
	} {
		var v string
		found, err := s.store.Get(ctx, id, sessions.NamespaceContext, f.key, &v)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", f.key, err)
		}
		if found {
			*f.dst = &v
		}
	}
	return &out, nil
}

func (s *Service) ClearContext(ctx context.Context) error {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return err
	}
	return s.clearContext(ctx, id)
}

func (s *Service) clearContext(ctx context.Context, id string) error {
	if err := s.store.ClearNamespace(ctx, id, sessions.NamespaceContext); err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	return nil
}

// --- Preferences ---

// Preferences returns the session's preferences; never nil.
func (s *Service) Preferences(ctx context.Context) (map[string]any, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Preferences(ctx, id)
}

// SetPreference merges one preference into the session's map.
func (s *Service) SetPreference(ctx context.Context, name string, value any) error {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, id, sessions.NamespacePreferences, name, value); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (s *Service) ClearPreferences(ctx context.Context) error {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return err
	}
	if err := s.store.ClearNamespace(ctx, id, sessions.NamespacePreferences); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	return nil
}
