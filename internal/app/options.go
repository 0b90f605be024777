package service

import (
	"time"

	"github.com/okian/cardioviz/internal/adapters/mq/queue"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSession sets the dashboard session the service drives.
func WithSession(s *dashboard.Session) Option {
	return func(svc *Service) {
		if s != nil {
			svc.session = s
		}
	}
}

// WithSource sets the data provider records are fetched from.
func WithSource(src dashboard.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithTarget sets the datastore passed to the source.
func WithTarget(t model.Target) Option {
	return func(s *Service) {
		s.target = t
	}
}

// WithQueueSize sets how many refresh requests may wait behind the running one.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many refresh request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRefreshInterval enables scheduled refreshes. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithInitialRefresh controls whether Start queues a refresh right away.
func WithInitialRefresh(enabled bool) Option {
	return func(s *Service) {
		s.initialRefresh = enabled
	}
}

// WithRefreshHook registers fn to observe every executed refresh request.
func WithRefreshHook(fn func(r queue.Request, err error)) Option {
	return func(s *Service) {
		s.refreshHook = fn
	}
}

// WithIDGenerator overrides how request ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
