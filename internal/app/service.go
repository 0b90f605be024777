// Package service wires the dashboard session to its data source, the refresh queue
// and the refresh worker, and implements the dependencies required by the HTTP API
// and the terminal viewer.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	refreshqueue "github.com/okian/cardioviz/internal/adapters/mq/queue"
	workerpool "github.com/okian/cardioviz/internal/adapters/mq/worker"
	"github.com/okian/cardioviz/internal/adapters/source"
	"github.com/okian/cardioviz/internal/domain/aggregate"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/dedupe"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
	"github.com/okian/cardioviz/pkg/logger"
	"github.com/okian/cardioviz/pkg/metrics"
)

const (
	defaultQueueSize     = 1
	defaultDedupeSize    = 1024
	runtimeMetricsPeriod = 5 * time.Second
	shutdownGracePeriod  = 10 * time.Second
	refreshWorkerCount   = 1
)

// Service owns one dashboard session and its refresh pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	session *dashboard.Session
	source  dashboard.Source
	target  model.Target
	deduper dedupe.Deduper
	queue   *refreshqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	queueSize       int
	dedupeSize      int
	refreshInterval time.Duration
	initialRefresh  bool
	refreshHook     func(r refreshqueue.Request, err error)
	newID           func() string

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Without options it serves the mock source and queues an
// initial refresh on Start.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		initialRefresh: true,
		newID:          func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.session == nil {
		s.session = dashboard.NewSession()
	}
	if s.source == nil {
		s.source = source.NewMock()
	}
	return s
}

// Start builds the refresh pipeline and starts the worker, the optional scheduler and
// the runtime metrics loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting dashboard service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = refreshqueue.NewInMemoryQueue(refreshqueue.WithCapacity(s.queueSize))

	workerOpts := []workerpool.Option{}
	if s.refreshHook != nil {
		workerOpts = append(workerOpts, workerpool.WithResultHook(s.refreshHook))
	}
	s.pool = workerpool.NewPool(refreshWorkerCount, s.queue, workerpool.RefresherFunc(s.runRefresh), workerOpts...)
	s.pool.Start(runCtx)

	s.wg.Add(1)
	go s.runtimeMetricsLoop(runCtx)

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.scheduleLoop(runCtx)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "dashboard service started",
		logger.String("datastore", s.target.DatastoreID),
		logger.String("region", s.target.Region),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)

	if s.initialRefresh {
		if err := s.enqueue(ctx, s.request(model.TriggerStartup)); err != nil {
			s.logger.Warn(ctx, "initial refresh not queued", logger.Error(err))
		}
	}
	return nil
}

// Stop drains the refresh worker and stops background loops.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, stopLoops := s.pool, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping dashboard service...")

	// Background loops take s.mu, so they are joined without holding it.
	stopLoops()
	s.wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "refresh worker did not stop cleanly", logger.Error(err))
	}

	s.logger.Info(ctx, "dashboard service stopped")
}

func (s *Service) runRefresh(ctx context.Context, _ refreshqueue.Request) error {
	return s.session.Refresh(ctx, s.source, s.target)
}

func (s *Service) request(trigger string) model.RefreshRequest {
	return model.RefreshRequest{ID: s.newID(), Trigger: trigger, RequestedAt: time.Now().UTC()}
}

// SeenAndRecord atomically checks if a refresh request id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordRefreshDuplicate()
	}
	return seen
}

// Unrecord forgets a refresh request id so it can be submitted again.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the number of remembered request ids.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// NewRequestID returns a fresh refresh request id.
func (s *Service) NewRequestID() string {
	return s.newID()
}

// EnqueueRefresh queues r for the refresh worker. It returns refreshqueue.ErrFull when
// a refresh is already waiting.
func (s *Service) EnqueueRefresh(ctx context.Context, r model.RefreshRequest) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enqueue(ctx, r)
}

// enqueue requires s.mu held.
func (s *Service) enqueue(ctx context.Context, r model.RefreshRequest) error {
	if !s.started {
		return ErrNotStarted
	}
	if err := s.queue.Enqueue(ctx, r); err != nil {
		return err
	}
	metrics.RecordRefreshRequest(r.Trigger)
	s.logger.Debug(ctx, "refresh queued",
		logger.String("requestID", r.ID),
		logger.String("trigger", r.Trigger),
	)
	return nil
}

// RequestRefresh queues a refresh under a generated id.
func (s *Service) RequestRefresh(ctx context.Context, trigger string) error {
	r := s.request(trigger)
	if s.SeenAndRecord(ctx, r.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateRequest, r.ID)
	}
	if err := s.EnqueueRefresh(ctx, r); err != nil {
		s.Unrecord(ctx, r.ID)
		return err
	}
	return nil
}

// RefreshNow runs a refresh on the caller's goroutine and returns its outcome.
func (s *Service) RefreshNow(ctx context.Context) error {
	metrics.RecordRefreshRequest("sync")
	return s.session.Refresh(ctx, s.source, s.target)
}

// Snapshot returns the current dashboard view.
func (s *Service) Snapshot() dashboard.Snapshot {
	return s.session.Snapshot()
}

// Toggle flips the visibility of a panel.
func (s *Service) Toggle(p panel.ID) panel.Set {
	return s.session.Toggle(p)
}

// Select restricts the view to one patient; an empty id clears the filter.
func (s *Service) Select(patientID string) error {
	return s.session.Select(patientID)
}

// Patient looks up one derived patient.
func (s *Service) Patient(id string) (model.Patient, bool) {
	return s.session.Patient(id)
}

// PatientSummary returns the per-patient averages for id.
func (s *Service) PatientSummary(id string) (aggregate.PatientStat, bool) {
	return s.session.PatientSummary(id)
}

func (s *Service) scheduleLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.RequestRefresh(ctx, model.TriggerScheduled)
			switch {
			case err == nil:
			case errors.Is(err, refreshqueue.ErrFull):
				s.logger.Debug(ctx, "scheduled refresh skipped; one is already waiting")
			default:
				s.logger.Warn(ctx, "scheduled refresh not queued", logger.Error(err))
			}
		}
	}
}

func (s *Service) runtimeMetricsLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(runtimeMetricsPeriod)
	defer ticker.Stop()

	for {
		updateRuntimeMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func updateRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.session.Snapshot()
	stats := map[string]interface{}{
		"started":           s.started,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"refreshIntervalMs": s.refreshInterval.Milliseconds(),
		"datastoreId":       s.target.DatastoreID,
		"region":            s.target.Region,
		"records":           snap.Metrics.TotalMeasurements,
		"patients":          snap.Metrics.UniquePatients,
		"activePanels":      snap.Active.Len(),
		"loading":           snap.Loading,
	}
	if snap.LastError != "" {
		stats["lastError"] = snap.LastError
	}
	if snap.RefreshedAt != nil {
		stats["refreshedAt"] = snap.RefreshedAt.Format(time.RFC3339)
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["trackedRequestIds"] = s.deduper.Size()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		updateRuntimeMetrics()
	}
	return stats
}
