package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/cardioviz/internal/adapters/mq/queue"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/pkg/logger"
	"github.com/okian/cardioviz/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Refresher runs one refresh for a request.
type Refresher interface {
	Refresh(ctx context.Context, r queue.Request) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, r queue.Request) error

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, r queue.Request) error {
	return f(ctx, r)
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
	Len(ctx context.Context) int
}

// Worker drains refresh requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after the request in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker executes refresh requests one at a time. Failures are logged and
// counted, never retried: the next request fetches again anyway.
type InMemoryWorker struct {
	queue     Queue
	refresher Refresher
	name      string
	onResult  func(r queue.Request, err error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, refresher Refresher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		refresher: refresher,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			w.queue.Len(ctx)
			err := w.process(ctx, r)
			if w.onResult != nil {
				w.onResult(r, err)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r queue.Request) error {
	start := time.Now()
	err := w.refresher.Refresh(ctx, r)

	fields := []logger.Field{
		logger.String("requestID", r.ID),
		logger.String("trigger", r.Trigger),
		logger.Duration("took", time.Since(start)),
	}
	switch {
	case err == nil:
		w.logger.Debug(ctx, "refresh request done", fields...)
	case errors.Is(err, dashboard.ErrRefreshInFlight):
		metrics.RecordErrorByComponent("worker", "in_flight")
		w.logger.Warn(ctx, "refresh request skipped; another refresh is running", fields...)
	default:
		metrics.RecordErrorByComponent("worker", "refresh_failed")
		w.logger.Error(ctx, "refresh request failed", append(fields, logger.Error(err))...)
	}
	return err
}

// Pool manages the refresh workers. A single worker is the default so refreshes
// execute in request order.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers, at least one.
func NewPool(workerCount int, q Queue, refresher Refresher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, refresher, workerOpts...)
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to finish the request in progress.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
