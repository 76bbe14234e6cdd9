package sessionstate

import (
	"io"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-session-go/internal/jobs"
	"github.com/ggoodman/mcp-session-go/sessions"
	"github.com/ggoodman/mcp-session-go/sessions/ttlstore"
)

const defaultJobTimeout = 10 * time.Second

type options struct {
	host          any
	backend       sessions.Backend
	log           *slog.Logger
	headers       []string
	bearer        bool
	workers       int
	jobTimeout    time.Duration
	legacy        *ttlstore.Store
	fallbackToken string
	maxValueBytes int
}

func defaultOptions() options {
	return options{
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:    jobs.DefaultLimit,
		jobTimeout: defaultJobTimeout,
	}
}

// Option configures a Service.
type Option func(*options)

// WithHost offers the hosting framework's value as a storage candidate. It is
// used as the backend when it implements sessions.Backend.
func WithHost(host any) Option { return func(o *options) { o.host = host } }

// WithBackend forces a specific backend.
func WithBackend(b sessions.Backend) Option { return func(o *options) { o.backend = b } }

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSessionHeaders overrides the explicit session header names.
func WithSessionHeaders(names ...string) Option {
	return func(o *options) { o.headers = append([]string(nil), names...) }
}

// WithBearerFallback enables bearer-hash session ids.
func WithBearerFallback(enabled bool) Option { return func(o *options) { o.bearer = enabled } }

// WithMetadataWorkers bounds concurrent client-metadata writes.
func WithMetadataWorkers(n int) Option { return func(o *options) { o.workers = n } }

// WithMetadataTimeout bounds each client-metadata write.
func WithMetadataTimeout(d time.Duration) Option { return func(o *options) { o.jobTimeout = d } }

// WithLegacyTokens routes token operations to a TTL-bounded single-token store.
func WithLegacyTokens(s *ttlstore.Store) Option { return func(o *options) { o.legacy = s } }

// WithFallbackToken sets a process-wide token used when a session has none.
func WithFallbackToken(token string) Option { return func(o *options) { o.fallbackToken = token } }

// WithMaxValueBytes caps the encoded size of a stored value.
func WithMaxValueBytes(n int) Option { return func(o *options) { o.maxValueBytes = n } }
