// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format of Record.Date.
const DateLayout = "2006-01-02"

// ErrInvalidRecord marks a record that fails Validate.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one cardiovascular measurement for a patient on a date.
// Records are treated as immutable once received from a source.
type Record struct {
	Date      string `json:"date"`      // calendar date, YYYY-MM-DD
	Systolic  int    `json:"systolic"`  // mmHg
	Diastolic int    `json:"diastolic"` // mmHg
	HeartRate int    `json:"heartRate"` // bpm
	PatientID string `json:"patientId"`
}

// Day parses Date.
func (r Record) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// Validate checks the fields a source must always provide.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.PatientID) == "":
		return errors.Join(ErrInvalidRecord, errors.New("missing patientId"))
	case r.Systolic < 0 || r.Diastolic < 0 || r.HeartRate < 0:
		return errors.Join(ErrInvalidRecord, errors.New("negative measurement"))
	}
	if _, err := r.Day(); err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	return nil
}

// Target identifies which external data store to query. Both values are opaque.
type Target struct {
	DatastoreID string `json:"datastoreId"`
	Region      string `json:"region"`
}

// SampleRecords returns the five canonical demo measurements.
func SampleRecords() []Record {
	return []Record{
		{Date: "2024-01-01", Systolic: 120, Diastolic: 80, HeartRate: 72, PatientID: "P001"},
		{Date: "2024-01-02", Systolic: 125, Diastolic: 82, HeartRate: 75, PatientID: "P001"},
		{Date: "2024-01-03", Systolic: 118, Diastolic: 78, HeartRate: 70, PatientID: "P002"},
		{Date: "2024-01-04", Systolic: 130, Diastolic: 85, HeartRate: 78, PatientID: "P002"},
		{Date: "2024-01-05", Systolic: 122, Diastolic: 81, HeartRate: 73, PatientID: "P003"},
	}
}
