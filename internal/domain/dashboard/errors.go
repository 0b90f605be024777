package dashboard

import "errors"

// Sentinel kinds for session errors.
var (
	// ErrDataFetch covers any failure to obtain the record sequence.
	ErrDataFetch = errors.New("data fetch failed")
	// ErrRefreshInFlight rejects a refresh while another one is running.
	ErrRefreshInFlight = errors.New("refresh already in flight")
	// ErrUnknownPatient rejects selecting a patient absent from the records.
	ErrUnknownPatient = errors.New("unknown patient")
)
