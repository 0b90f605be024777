// Package probe is a smoke test client for a running dashboard server.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Requests    int           // Number of distinct refresh requests to submit
	Duplicates  int           // Number of accepted request ids to resubmit
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	SettleAfter time.Duration // Upper bound on waiting for the refreshes to finish
	PollEvery   time.Duration // Interval between view polls while waiting
	Verbose     bool          // Log every response
}

// View is the subset of the dashboard snapshot the probe checks.
type View struct {
	Records []struct {
		PatientID string `json:"patientId"`
	} `json:"records"`
	Metrics struct {
		TotalMeasurements int `json:"totalMeasurements"`
		UniquePatients    int `json:"uniquePatients"`
		AvgSystolic       int `json:"avgSystolic"`
		AvgHeartRate      int `json:"avgHeartRate"`
	} `json:"metrics"`
	Patients []struct {
		ID string `json:"id"`
	} `json:"patients"`
	Panels []struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	} `json:"panels"`
	SelectedPatient string  `json:"selectedPatient"`
	Loading         bool    `json:"loading"`
	LastError       string  `json:"lastError"`
	RefreshedAt     *string `json:"refreshedAt"`
}

// AckResponse represents the response from a refresh submission.
type AckResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds probe statistics.
type Stats struct {
	Submitted      int
	Accepted       int
	Duplicate      int
	Backpressure   int
	Failed         int
	ChartsRendered int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
