// Package dashboard owns the dashboard state: the current records, their derived
// metrics, the visible panels and the refresh lifecycle.
//
// State transitions:
//
//	idle --Refresh--> loading --success--> idle (records replaced)
//	                          --failure--> idle (records kept, lastError set)
//
// At most one refresh runs at a time; a concurrent Refresh returns ErrRefreshInFlight.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cardioviz/internal/domain/aggregate"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
	"github.com/okian/cardioviz/pkg/logger"
	"github.com/okian/cardioviz/pkg/metrics"
)

// Source supplies measurement records for a target.
type Source interface {
	Fetch(ctx context.Context, target model.Target) ([]model.Record, error)
}

// Snapshot is an immutable copy of the session as seen by renderers.
// When a patient is selected, Records, Metrics and PatientStats are restricted to it.
type Snapshot struct {
	Records         []model.Record          `json:"records"`
	Metrics         aggregate.Summary       `json:"metrics"`
	PatientStats    []aggregate.PatientStat `json:"patientStats"`
	Patients        []model.Patient         `json:"patients"`
	Panels          []panel.State           `json:"panels"`
	Active          panel.Set               `json:"-"`
	SelectedPatient string                  `json:"selectedPatient,omitempty"`
	Loading         bool                    `json:"loading"`
	LastError       string                  `json:"lastError,omitempty"`
	RefreshedAt     *time.Time              `json:"refreshedAt,omitempty"`
}

// Session is the explicit owned state of one dashboard.
type Session struct {
	mu sync.RWMutex

	records     []model.Record
	summary     aggregate.Summary
	stats       []aggregate.PatientStat
	patients    []model.Patient
	panels      panel.Set
	selected    string
	loading     bool
	lastErr     error
	refreshedAt time.Time

	fetchTimeout time.Duration
	observers    []func(loading bool)
	now          func() time.Time
	logger       logger.Logger
}

// NewSession creates an empty session showing the blood pressure and heart rate panels.
func NewSession(opts ...Option) *Session {
	s := &Session{
		panels: panel.NewSet(panel.BloodPressure, panel.HeartRate),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("session")
	}
	metrics.UpdateActivePanels(s.panels.Len())
	return s
}

// Refresh fetches records from src and replaces the session data on success.
// On failure the previous records stay in place and the error, wrapped in
// ErrDataFetch, is both returned and kept as the session's last error.
func (s *Session) Refresh(ctx context.Context, src Source, target model.Target) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		metrics.RecordRefreshResult("in_flight")
		return ErrRefreshInFlight
	}
	s.loading = true
	s.mu.Unlock()
	s.notify(true)

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify(false)
	}()

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	records, err := src.Fetch(ctx, target)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	if err == nil {
		err = validateAll(records)
	}
	if err != nil {
		fetchErr := fmt.Errorf("%w: %w", ErrDataFetch, err)
		s.mu.Lock()
		s.lastErr = fetchErr
		s.mu.Unlock()

		metrics.RecordRefreshResult("failure")
		metrics.RecordErrorByComponent("session", "fetch_failed")
		s.logger.Error(ctx, "refresh failed; keeping previous records",
			logger.String("datastore", target.DatastoreID),
			logger.String("region", target.Region),
			logger.Error(err),
		)
		return fetchErr
	}

	s.replace(records)
	metrics.RecordRefreshResult("success")
	s.logger.Info(ctx, "records refreshed",
		logger.Int("records", len(records)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

func validateAll(records []model.Record) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// replace installs a new record set and recomputes everything derived from it.
func (s *Session) replace(records []model.Record) {
	owned := make([]model.Record, len(records))
	copy(owned, records)
	summary := aggregate.Compute(owned)
	stats := aggregate.ByPatient(owned)
	patients := model.Patients(owned)

	s.mu.Lock()
	s.records = owned
	s.summary = summary
	s.stats = stats
	s.patients = patients
	s.lastErr = nil
	s.refreshedAt = s.now()
	if s.selected != "" && !hasPatient(patients, s.selected) {
		s.selected = ""
	}
	s.mu.Unlock()

	metrics.UpdateRecords(summary.TotalMeasurements)
	metrics.UpdatePatients(summary.UniquePatients)
}

func (s *Session) notify(loading bool) {
	metrics.SetLoading(loading)
	for _, fn := range s.observers {
		fn(loading)
	}
}

// Toggle flips the visibility of p and returns the new panel set.
func (s *Session) Toggle(p panel.ID) panel.Set {
	s.mu.Lock()
	s.panels = panel.Toggle(s.panels, p)
	next := s.panels
	s.mu.Unlock()

	metrics.RecordPanelToggle(string(p))
	metrics.UpdateActivePanels(next.Len())
	return next
}

// SetPanels replaces the visible panel set.
func (s *Session) SetPanels(set panel.Set) {
	s.mu.Lock()
	s.panels = set
	s.mu.Unlock()
	metrics.UpdateActivePanels(set.Len())
}

// Panels returns the visible panel set.
func (s *Session) Panels() panel.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panels
}

// Select restricts the snapshot to one patient. An empty id clears the selection.
func (s *Session) Select(patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patientID != "" && !hasPatient(s.patients, patientID) {
		return fmt.Errorf("%w: %s", ErrUnknownPatient, patientID)
	}
	s.selected = patientID
	return nil
}

// Loading reports whether a refresh is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the error of the most recent failed refresh, or nil after a success.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Patient looks up a derived patient by id.
func (s *Session) Patient(id string) (model.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.ID == id {
			return p, true
		}
	}
	return model.Patient{}, false
}

// PatientSummary returns the averages of one patient over all loaded records,
// regardless of the selected patient.
func (s *Session) PatientSummary(id string) (aggregate.PatientStat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stats {
		if st.PatientID == id {
			return st, true
		}
	}
	return aggregate.PatientStat{}, false
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Records:         append([]model.Record(nil), s.records...),
		Metrics:         s.summary,
		PatientStats:    append([]aggregate.PatientStat(nil), s.stats...),
		Patients:        append([]model.Patient(nil), s.patients...),
		Panels:          panel.States(s.panels),
		Active:          s.panels,
		SelectedPatient: s.selected,
		Loading:         s.loading,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	if !s.refreshedAt.IsZero() {
		at := s.refreshedAt
		snap.RefreshedAt = &at
	}
	if s.selected != "" {
		snap.Records = model.FilterByPatient(snap.Records, s.selected)
		snap.Metrics = aggregate.Compute(snap.Records)
		snap.PatientStats = aggregate.ByPatient(snap.Records)
	}
	if snap.Records == nil {
		snap.Records = []model.Record{}
	}
	if snap.PatientStats == nil {
		snap.PatientStats = []aggregate.PatientStat{}
	}
	if snap.Patients == nil {
		snap.Patients = []model.Patient{}
	}
	return snap
}

func hasPatient(patients []model.Patient, id string) bool {
	for _, p := range patients {
		if p.ID == id {
			return true
		}
	}
	return false
}
