// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ggoodman/mcp-session-go/hostctx"
	"github.com/joeshaw/envdecode"
)

// Session storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	// Transport is stdio, streamable-http or sse. ENV: MCP_TRANSPORT
	Transport string `env:"MCP_TRANSPORT,default=stdio"`
	// HTTPAddr is the listen address for HTTP transports. ENV: MCP_HTTP_ADDR
	HTTPAddr string `env:"MCP_HTTP_ADDR,default=:8080"`

	// SessionBackend selects memory (process local) or redis. ENV: SESSION_BACKEND
	SessionBackend string `env:"SESSION_BACKEND,default=memory"`
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all Redis keys. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=mcp:sessions:"`

	// SessionTTLSeconds is the token lifetime of the legacy store. ENV: SESSION_TTL_SECONDS
	SessionTTLSeconds int `env:"SESSION_TTL_SECONDS,default=1800"`
	// LegacyTokens keeps tokens in the TTL-bounded single-token store. ENV: SESSION_LEGACY_TOKENS
	LegacyTokens bool `env:"SESSION_LEGACY_TOKENS,default=false"`
	// BearerSessionCompat derives session ids from bearer tokens. ENV: SESSION_BEARER_COMPAT
	BearerSessionCompat bool `env:"SESSION_BEARER_COMPAT,default=false"`
	// MetadataWorkers bounds concurrent client-metadata writes. ENV: SESSION_METADATA_WORKERS
	MetadataWorkers int `env:"SESSION_METADATA_WORKERS,default=16"`

	// LogLevel is debug, info, warn or error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// DefaultToken is used for sessions that never set one. ENV: TFC_TOKEN
	DefaultToken string `env:"TFC_TOKEN"`
}

// Load decodes the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.SessionTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL_SECONDS must be positive, got %d", c.SessionTTLSeconds))
	}
	if c.MetadataWorkers <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_METADATA_WORKERS must be positive, got %d", c.MetadataWorkers))
	}
	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.SessionBackend))
	}
	if c.TransportKind() == hostctx.TransportUnknown {
		errs = append(errs, fmt.Errorf("MCP_TRANSPORT %q is not supported", c.Transport))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SessionTTL is SessionTTLSeconds as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c Config) TransportKind() hostctx.TransportKind {
	return hostctx.ParseTransportKind(c.Transport)
}

// Level returns the slog level, defaulting to info.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
