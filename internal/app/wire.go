package service

import (
	"fmt"
	"time"

	"github.com/okian/cardioviz/internal/adapters/source"
	"github.com/okian/cardioviz/internal/config"
	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
	"github.com/okian/cardioviz/pkg/logger"
)

// NewSource builds the data provider selected by cfg.Source.
func NewSource(cfg *config.Config) (dashboard.Source, error) {
	switch cfg.Source {
	case config.SourceMock:
		return source.NewMock(
			source.WithLatencyRange(ms(cfg.MockLatencyMinMS), ms(cfg.MockLatencyMaxMS)),
			source.WithMockLogger(logger.Named("source.mock")),
		), nil
	case config.SourceHealthLake:
		return source.NewHealthLake(
			source.WithEndpoint(cfg.HealthLakeEndpoint),
			source.WithCredentials(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken),
			source.WithHealthLakeLogger(logger.Named("source.healthlake")),
		), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, cfg.Source)
	}
}

// NewFromConfig builds a Service, its session and its source from cfg. Extra options are
// applied last and may override the configured values.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	src, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}
	panels, err := panel.ParseAll(cfg.DefaultPanels)
	if err != nil {
		return nil, fmt.Errorf("%w: default_panels: %w", config.ErrInvalidConfig, err)
	}

	session := dashboard.NewSession(
		dashboard.WithPanels(panels),
		dashboard.WithFetchTimeout(ms(cfg.FetchTimeoutMS)),
	)

	base := []Option{
		WithSession(session),
		WithSource(src),
		WithTarget(model.Target{DatastoreID: cfg.DatastoreID, Region: cfg.Region}),
		WithQueueSize(cfg.RefreshQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithRefreshInterval(ms(cfg.RefreshIntervalMS)),
	}
	return New(append(base, opts...)...), nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
