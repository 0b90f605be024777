// Package source provides the data providers a dashboard session fetches records from.
//
// Every provider satisfies Source. Mock serves the canonical demo measurements after a
// simulated delay; HealthLake queries a FHIR R4 datastore.
package source

import (
	"context"

	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/model"
)

// Source yields the current measurement records for a target.
type Source interface {
	Fetch(ctx context.Context, target model.Target) ([]model.Record, error)
}

var (
	_ Source           = (*Mock)(nil)
	_ Source           = (*HealthLake)(nil)
	_ dashboard.Source = Source(nil)
)
