package dashboard

import (
	"time"

	"github.com/okian/cardioviz/internal/domain/panel"
	"github.com/okian/cardioviz/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPanels sets the initially visible panels.
func WithPanels(set panel.Set) Option {
	return func(s *Session) {
		s.panels = set
	}
}

// WithFetchTimeout bounds each fetch. Zero or negative disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.fetchTimeout = d
	}
}

// WithLoadingObserver registers fn to be called on every loading transition.
// fn runs outside the session lock and may read the session.
func WithLoadingObserver(fn func(loading bool)) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
