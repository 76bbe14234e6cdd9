package sessionstate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ggoodman/mcp-session-go/clientmeta"
	"github.com/ggoodman/mcp-session-go/identity"
	"github.com/ggoodman/mcp-session-go/internal/logctx"
	"github.com/ggoodman/mcp-session-go/sessions"
)

// StoreClientMetadata records md under sessionID: the full record as one blob
// and every present field on its own. An empty record stores nothing.
func (s *Service) StoreClientMetadata(ctx context.Context, sessionID string, md clientmeta.Metadata) error {
	if md.IsEmpty() {
		return nil
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sessionID, Backend: string(s.store.Kind())})
	writes := []struct {
		key   string
		value any
		ok    bool
	}{
		{sessions.KeyClientRaw, md, true},
		{sessions.KeyClientRegion, md.Region, md.Region != ""},
		{sessions.KeyClientAgent, md.AgentName, md.AgentName != ""},
		{sessions.KeyClientTimestamp, md.Timestamp, md.Timestamp != nil},
		{sessions.KeyClientPreferences, md.Preferences, md.Preferences != nil},
	}
	for _, w := range writes {
		if !w.ok {
			continue
		}
		if err := s.store.Set(ctx, sessionID, sessions.NamespaceClient, w.key, w.value); err != nil {
			return fmt.Errorf("store client %s: %w", w.key, err)
		}
	}
	s.log.DebugContext(ctx, "sessionstate.client.stored", slog.Int("fields", len(md.RawHeaders)))
	return nil
}

// ClientContext returns the stored client metadata. found is false when the
// client never sent any metadata header.
func (s *Service) ClientContext(ctx context.Context) (*clientmeta.Metadata, bool, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, false, err
	}
	return s.clientContext(ctx, id)
}

func (s *Service) clientContext(ctx context.Context, id string) (*clientmeta.Metadata, bool, error) {
	var md clientmeta.Metadata
	found := false
	for _, f := range []struct {
		key string
		dst any
	}{
		{sessions.KeyClientRegion, &md.Region},
		{sessions.KeyClientAgent, &md.AgentName},
		{sessions.KeyClientTimestamp, &md.Timestamp},
		{sessions.KeyClientPreferences, &md.Preferences},
	} {
		ok, err := s.store.Get(ctx, id, sessions.NamespaceClient, f.key, f.dst)
		if err != nil {
			return nil, false, fmt.Errorf("get client %s: %w", f.key, err)
		}
		found = found || ok
	}

	var raw clientmeta.Metadata
	ok, err := s.store.Get(ctx, id, sessions.NamespaceClient, sessions.KeyClientRaw, &raw)
	if err != nil {
		return nil, false, fmt.Errorf("get client raw: %w", err)
	}
	if ok {
		md.RawHeaders = raw.RawHeaders
		found = true
	}
	if !found {
		return nil, false, nil
	}
	return &md, true, nil
}

// ClientPreferences returns the preferences the client advertised; never nil.
func (s *Service) ClientPreferences(ctx context.Context) (map[string]any, error) {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	prefs := map[string]any{}
	if _, err := s.store.Get(ctx, id, sessions.NamespaceClient, sessions.KeyClientPreferences, &prefs); err != nil {
		return nil, fmt.Errorf("get client preferences: %w", err)
	}
	return prefs, nil
}

func (s *Service) ClearClientContext(ctx context.Context) error {
	ctx, id, err := s.session(ctx)
	if err != nil {
		return err
	}
	if err := s.store.ClearNamespace(ctx, id, sessions.NamespaceClient); err != nil {
		return fmt.Errorf("clear client context: %w", err)
	}
	return nil
}

var _ identity.MetadataSink = (*Service)(nil)
