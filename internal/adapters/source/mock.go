package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/pkg/logger"
)

const defaultMockLatency = time.Second

// MockOption applies a configuration option to the Mock.
type MockOption func(*Mock)

// WithLatencyRange sets the simulated fetch delay bounds. The delay for each call is
// drawn uniformly from [lo, hi]. Invalid ranges are ignored.
func WithLatencyRange(lo, hi time.Duration) MockOption {
	return func(m *Mock) {
		if lo >= 0 && hi >= lo {
			m.minLatency, m.maxLatency = lo, hi
		}
	}
}

// WithRecords replaces the records the mock serves.
func WithRecords(records []model.Record) MockOption {
	return func(m *Mock) {
		m.records = append([]model.Record(nil), records...)
	}
}

// WithFailure makes every fetch fail with err wrapped in ErrUnavailable.
func WithFailure(err error) MockOption {
	return func(m *Mock) {
		m.failure = err
	}
}

// WithMockLogger sets the mock logger.
func WithMockLogger(l logger.Logger) MockOption {
	return func(m *Mock) {
		if l != nil {
			m.logger = l
		}
	}
}

// Mock serves a fixed record set after a simulated network delay.
type Mock struct {
	minLatency time.Duration
	maxLatency time.Duration
	records    []model.Record

	mu      sync.RWMutex
	failure error
	calls   int

	logger logger.Logger
}

// NewMock creates a mock serving the five canonical demo records after one second.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		minLatency: defaultMockLatency,
		maxLatency: defaultMockLatency,
		records:    model.SampleRecords(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("source.mock")
	}
	return m
}

// Fetch waits for the simulated delay, then returns a copy of the records.
// The target is logged but otherwise ignored.
func (m *Mock) Fetch(ctx context.Context, target model.Target) ([]model.Record, error) {
	m.mu.Lock()
	m.calls++
	failure := m.failure
	m.mu.Unlock()

	delay := m.latency()
	m.logger.Debug(ctx, "fetching mock records",
		logger.String("datastore", target.DatastoreID),
		logger.String("region", target.Region),
		logger.Duration("delay", delay),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if failure != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, failure)
	}
	return append([]model.Record(nil), m.records...), nil
}

// SetFailure switches failure injection at runtime; nil restores normal behaviour.
func (m *Mock) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Calls returns how many times Fetch was invoked.
func (m *Mock) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *Mock) latency() time.Duration {
	span := m.maxLatency - m.minLatency
	if span <= 0 {
		return m.minLatency
	}
	return m.minLatency + rand.N(span+1)
}
