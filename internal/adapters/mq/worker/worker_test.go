package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/cardioviz/internal/adapters/mq/queue"
	worker "github.com/okian/cardioviz/internal/adapters/mq/worker"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	model "github.com/okian/cardioviz/internal/domain/model"
	logging "github.com/okian/cardioviz/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch     chan queue.Request
	closed bool
	mu     sync.Mutex
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan queue.Request, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Request { return mq.ch }
func (mq *mockQueue) Len(context.Context) int                      { return len(mq.ch) }

func (mq *mockQueue) Close() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if !mq.closed {
		close(mq.ch)
		mq.closed = true
	}
	return nil
}

type mockRefresher struct {
	mu    sync.Mutex
	seen  []string
	errOf map[string]error
}

func newMockRefresher() *mockRefresher {
	return &mockRefresher{errOf: make(map[string]error)}
}

func (m *mockRefresher) Refresh(_ context.Context, r queue.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, r.ID)
	return m.errOf[r.ID]
}

func (m *mockRefresher) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

type results struct {
	mu   sync.Mutex
	errs map[string]error
	done chan string
}

func newResults() *results {
	return &results{errs: make(map[string]error), done: make(chan string, 10)}
}

func (r *results) hook(req queue.Request, err error) {
	r.mu.Lock()
	r.errs[req.ID] = err
	r.mu.Unlock()
	r.done <- req.ID
}

func (r *results) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %d results", n)
		}
	}
}

func req(id string) queue.Request {
	return model.RefreshRequest{ID: id, Trigger: model.TriggerAPI, RequestedAt: time.Now()}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a refresh worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		refresher := newMockRefresher()
		res := newResults()
		w := worker.NewInMemoryWorker(q, refresher, worker.WithName("refresh-test"), worker.WithResultHook(res.hook))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When requests are queued", func() {
			refresher.errOf["r2"] = errors.New("datastore down")
			refresher.errOf["r3"] = dashboard.ErrRefreshInFlight
			for _, id := range []string{"r1", "r2", "r3"} {
				q.ch <- req(id)
			}
			res.wait(t, 3)

			convey.Convey("Then they run in order and outcomes are reported", func() {
				convey.So(refresher.ids(), convey.ShouldResemble, []string{"r1", "r2", "r3"})
				convey.So(res.errs["r1"], convey.ShouldBeNil)
				convey.So(res.errs["r2"], convey.ShouldNotBeNil)
				convey.So(errors.Is(res.errs["r3"], dashboard.ErrRefreshInFlight), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()

			convey.Convey("Then the worker stops", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker that was never started", t, func() {
		_ = logging.Init()
		w := worker.NewInMemoryWorker(newMockQueue(), newMockRefresher())

		convey.Convey("Then shutdown times out", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := w.Shutdown(ctx)
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over the in-memory queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		res := newResults()
		var calls int
		var mu sync.Mutex
		refresher := worker.RefresherFunc(func(context.Context, queue.Request) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		})
		pool := worker.NewPool(0, q, refresher, worker.WithResultHook(res.hook))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When requests are enqueued", func() {
			convey.So(q.Enqueue(ctx, req("a")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, req("b")), convey.ShouldBeNil)
			res.wait(t, 2)

			convey.Convey("Then each is executed once", func() {
				mu.Lock()
				defer mu.Unlock()
				convey.So(calls, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue is closed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(errors.Is(q.Enqueue(ctx, req("late")), queue.ErrClosed), convey.ShouldBeTrue)
			})
		})
	})
}
