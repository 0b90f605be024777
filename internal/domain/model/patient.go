package model

// Patient is derived from the records that mention it.
type Patient struct {
	ID           string `json:"id"`
	Measurements int    `json:"measurements"`
	FirstSeen    string `json:"firstSeen"`
	LastSeen     string `json:"lastSeen"`
}

// Patients lists the distinct patients in records, ordered by first appearance.
// FirstSeen/LastSeen compare dates lexically, which is chronological for DateLayout.
func Patients(records []Record) []Patient {
	index := make(map[string]int)
	var out []Patient
	for _, r := range records {
		i, ok := index[r.PatientID]
		if !ok {
			index[r.PatientID] = len(out)
			out = append(out, Patient{ID: r.PatientID, Measurements: 1, FirstSeen: r.Date, LastSeen: r.Date})
			continue
		}
		p := &out[i]
		p.Measurements++
		if r.Date < p.FirstSeen {
			p.FirstSeen = r.Date
		}
		if r.Date > p.LastSeen {
			p.LastSeen = r.Date
		}
	}
	return out
}

// FilterByPatient returns the records of one patient. An empty id returns records unchanged.
func FilterByPatient(records []Record, patientID string) []Record {
	if patientID == "" {
		return records
	}
	var out []Record
	for _, r := range records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out
}
