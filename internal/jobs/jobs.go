// Package jobs runs fire-and-forget background work with a bound on
// concurrency. Submitters never block: when every slot is busy the job is
// rejected and the caller decides what to log.
package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultLimit = 16

type Option func(*Pool)

func WithLimit(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithTimeout bounds each job. Zero means jobs run until the pool closes.
func WithTimeout(d time.Duration) Option { return func(p *Pool) { p.timeout = d } }

func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// Pool is safe for concurrent use.
type Pool struct {
	g       errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	limit   int
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func New(opts ...Option) *Pool {
	p := &Pool{
		limit: DefaultLimit,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.g.SetLimit(p.limit)
	return p
}

// Submit schedules fn and reports whether it was accepted. fn receives a
// context that is independent of the submitter's request and is canceled when
// the pool closes. Errors returned by fn are logged, never propagated.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	id := uuid.NewString()
	return p.g.TryGo(func() error {
		ctx := p.ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		start := time.Now()
		if err := fn(ctx); err != nil {
			p.log.WarnContext(ctx, "jobs.failed", slog.String("job", name), slog.String("job_id", id), slog.String("err", err.Error()))
			return nil
		}
		p.log.DebugContext(ctx, "jobs.done", slog.String("job", name), slog.String("job_id", id), slog.Duration("took", time.Since(start)))
		return nil
	})
}

// Wait blocks until every accepted job has finished. The pool stays usable.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}

// Close rejects new jobs, cancels running ones and waits for them to return.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	_ = p.g.Wait()
}
