package probe

import "fmt"

// verifyView checks that the summary agrees with the records it was computed from.
func verifyView(v View) error {
	if v.LastError != "" {
		return fmt.Errorf("%w: last refresh failed: %s", ErrInconsistent, v.LastError)
	}
	if v.Metrics.TotalMeasurements != len(v.Records) {
		return fmt.Errorf("%w: totalMeasurements %d, records %d", ErrInconsistent, v.Metrics.TotalMeasurements, len(v.Records))
	}

	distinct := make(map[string]struct{}, len(v.Records))
	for _, r := range v.Records {
		distinct[r.PatientID] = struct{}{}
	}
	if v.Metrics.UniquePatients != len(distinct) {
		return fmt.Errorf("%w: uniquePatients %d, distinct patients in records %d", ErrInconsistent, v.Metrics.UniquePatients, len(distinct))
	}
	// patients are never filtered by the selection
	if v.SelectedPatient == "" && len(v.Patients) != len(distinct) {
		return fmt.Errorf("%w: patients %d, distinct patients in records %d", ErrInconsistent, len(v.Patients), len(distinct))
	}
	if len(v.Records) == 0 && (v.Metrics.AvgSystolic != 0 || v.Metrics.AvgHeartRate != 0) {
		return fmt.Errorf("%w: non-zero averages without records", ErrInconsistent)
	}
	return nil
}
