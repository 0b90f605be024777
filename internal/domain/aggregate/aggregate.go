// Package aggregate derives summary metrics from measurement records.
//
// Every function here is total and pure: empty input yields zero values.
package aggregate

import (
	"math"

	"github.com/okian/cardioviz/internal/domain/model"
)

// Summary is the read-only snapshot shown in the metric tiles.
type Summary struct {
	TotalMeasurements int `json:"totalMeasurements"`
	UniquePatients    int `json:"uniquePatients"`
	AvgSystolic       int `json:"avgSystolic"`
	AvgHeartRate      int `json:"avgHeartRate"`
}

// PatientStat holds per-patient averages for the patient summary panel.
type PatientStat struct {
	PatientID    string `json:"patientId"`
	Measurements int    `json:"measurements"`
	AvgSystolic  int    `json:"avgSystolic"`
	AvgDiastolic int    `json:"avgDiastolic"`
	AvgHeartRate int    `json:"avgHeartRate"`
}

// Compute summarises records.
func Compute(records []model.Record) Summary {
	n := len(records)
	if n == 0 {
		return Summary{}
	}

	patients := make(map[string]struct{}, n)
	var systolic, heartRate int
	for _, r := range records {
		patients[r.PatientID] = struct{}{}
		systolic += r.Systolic
		heartRate += r.HeartRate
	}

	return Summary{
		TotalMeasurements: n,
		UniquePatients:    len(patients),
		AvgSystolic:       mean(systolic, n),
		AvgHeartRate:      mean(heartRate, n),
	}
}

// ByPatient computes one PatientStat per distinct patient, in first-appearance order.
func ByPatient(records []model.Record) []PatientStat {
	type sums struct {
		n, systolic, diastolic, heartRate int
	}
	order := make([]string, 0)
	acc := make(map[string]*sums)
	for _, r := range records {
		s, ok := acc[r.PatientID]
		if !ok {
			s = &sums{}
			acc[r.PatientID] = s
			order = append(order, r.PatientID)
		}
		s.n++
		s.systolic += r.Systolic
		s.diastolic += r.Diastolic
		s.heartRate += r.HeartRate
	}

	out := make([]PatientStat, 0, len(order))
	for _, id := range order {
		s := acc[id]
		out = append(out, PatientStat{
			PatientID:    id,
			Measurements: s.n,
			AvgSystolic:  mean(s.systolic, s.n),
			AvgDiastolic: mean(s.diastolic, s.n),
			AvgHeartRate: mean(s.heartRate, s.n),
		})
	}
	return out
}

// mean rounds half away from zero; n == 0 yields 0.
func mean(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
