package redishost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ggoodman/mcp-session-go/sessions"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "mcp:sessions:"
	defaultTTL          = 24 * time.Hour
	defaultConnectTries = 5
	maxUpdateAttempts   = 100
)

// ErrUpdateConflict is returned when an atomic update keeps losing races.
var ErrUpdateConflict = errors.New("redishost: too many concurrent updates")

// Config for a Redis-backed Host. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// KeyPrefix for all keys. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=mcp:sessions:"`
	// TTL is the sliding idle lifetime of a session. ENV: SESSIONS_TTL
	TTL time.Duration `env:"SESSIONS_TTL,default=24h"`
}

// Option configures a Host.
type Option func(*Host)

func WithKeyPrefix(prefix string) Option { return func(h *Host) { h.keyPrefix = prefix } }

// WithTTL sets the sliding idle lifetime. Zero or negative disables expiry.
func WithTTL(d time.Duration) Option { return func(h *Host) { h.ttl = d } }

// WithClient uses an existing client instead of dialing addr.
func WithClient(c redis.UniversalClient) Option { return func(h *Host) { h.client = c } }

// WithConnectRetries bounds the attempts made to reach Redis in New.
func WithConnectRetries(n uint) Option { return func(h *Host) { h.connectTries = n } }

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// Host is a Redis implementation of sessions.Backend.
type Host struct {
	client       redis.UniversalClient
	keyPrefix    string
	ttl          time.Duration
	connectTries uint
	log          *slog.Logger
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr string, opts ...Option) (*Host, error) {
	h := &Host{
		keyPrefix:    defaultKeyPrefix,
		ttl:          defaultTTL,
		connectTries: defaultConnectTries,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		if addr == "" {
			addr = "localhost:6379"
		}
		h.client = redis.NewClient(&redis.Options{Addr: addr})
	}
	if h.connectTries == 0 {
		h.connectTries = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, h.client.Ping(ctx).Err()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(h.connectTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			h.log.WarnContext(ctx, "redishost.ping.retry", slog.String("err", err.Error()), slog.Duration("next", next))
		}),
	)
	if err != nil {
		_ = h.client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return h, nil
}

// NewFromEnv builds a Host using envdecode to populate Config.
func NewFromEnv(ctx context.Context, opts ...Option) (*Host, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	base := []Option{WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL)}
	return New(ctx, cfg.RedisAddr, append(base, opts...)...)
}

// Close closes the Redis client.
func (h *Host) Close() error { return h.client.Close() }

func (h *Host) dataKey(sessionID string) string { return h.keyPrefix + "data:" + sessionID }

func (h *Host) GetSessionData(ctx context.Context, sessionID, key string) ([]byte, error) {
	v, err := h.client.HGet(ctx, h.dataKey(sessionID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (h *Host) PutSessionData(ctx context.Context, sessionID, key string, value []byte) error {
	k := h.dataKey(sessionID)
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		h.writeCmds(ctx, pipe, k, key, value)
		return nil
	})
	return err
}

// DeleteSessionData removes one field; Redis drops the hash with its last field.
func (h *Host) DeleteSessionData(ctx context.Context, sessionID, key string) error {
	return h.client.HDel(ctx, h.dataKey(sessionID), key).Err()
}

// UpdateSessionData applies fn under WATCH, retrying when another writer
// touched the session in between.
func (h *Host) UpdateSessionData(ctx context.Context, sessionID, key string, fn func([]byte) ([]byte, error)) error {
	k := h.dataKey(sessionID)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, k, key).Bytes()
		if errors.Is(err, redis.Nil) {
			cur, err = nil, nil
		}
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.HDel(ctx, k, key)
				return nil
			}
			h.writeCmds(ctx, pipe, k, key, next)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := h.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrUpdateConflict
}

func (h *Host) writeCmds(ctx context.Context, pipe redis.Pipeliner, k, field string, value []byte) {
	pipe.HSet(ctx, k, field, value)
	if h.ttl > 0 {
		pipe.Expire(ctx, k, h.ttl)
	}
}

var (
	_ sessions.Backend = (*Host)(nil)
	_ sessions.Updater = (*Host)(nil)
)
