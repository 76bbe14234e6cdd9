package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/mcp-session-go/hostctx"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionTTL() != 1800*time.Second {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL())
	}
	if cfg.TransportKind() != hostctx.TransportLocal {
		t.Fatalf("unexpected transport %s", cfg.TransportKind())
	}
	if cfg.SessionBackend != BackendMemory || cfg.MetadataWorkers != 16 || cfg.Level() != slog.LevelInfo {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LegacyTokens || cfg.BearerSessionCompat {
		t.Fatalf("compat modes must be off by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", "sse")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SESSION_BEARER_COMPAT", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TFC_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TransportKind() != hostctx.TransportHTTPPersistent || cfg.SessionTTL() != time.Minute {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if !cfg.BearerSessionCompat || cfg.DefaultToken != "tok" || cfg.Level() != slog.LevelDebug {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("SESSION_TTL_SECONDS", "0")
	t.Setenv("SESSION_BACKEND", "etcd")
	t.Setenv("MCP_TRANSPORT", "pigeon")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"SESSION_TTL_SECONDS", "SESSION_BACKEND", "MCP_TRANSPORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}
