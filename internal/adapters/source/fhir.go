package source

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/cardioviz/internal/domain/model"
)

// LOINC codes understood by the FHIR parser.
const (
	codeBloodPressurePanel = "85354-9"
	codeSystolic           = "8480-6"
	codeDiastolic          = "8462-4"
	codeHeartRate          = "8867-4"
)

// ObservationCodes is the code search parameter sent to the datastore.
var ObservationCodes = strings.Join([]string{
	"http://loinc.org|" + codeBloodPressurePanel,
	"http://loinc.org|" + codeSystolic,
	"http://loinc.org|" + codeDiastolic,
	"http://loinc.org|" + codeHeartRate,
}, ",")

type bundle struct {
	ResourceType string        `json:"resourceType"`
	Link         []bundleLink  `json:"link"`
	Entry        []bundleEntry `json:"entry"`
}

type bundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type bundleEntry struct {
	Resource observation `json:"resource"`
}

type observation struct {
	ResourceType      string          `json:"resourceType"`
	Status            string          `json:"status"`
	Code              codeableConcept `json:"code"`
	Subject           reference       `json:"subject"`
	EffectiveDateTime string          `json:"effectiveDateTime"`
	Issued            string          `json:"issued"`
	ValueQuantity     *quantity       `json:"valueQuantity"`
	Component         []component     `json:"component"`
}

type component struct {
	Code          codeableConcept `json:"code"`
	ValueQuantity *quantity       `json:"valueQuantity"`
}

type codeableConcept struct {
	Coding []coding `json:"coding"`
}

type coding struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

type reference struct {
	Reference string `json:"reference"`
}

type quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (c codeableConcept) has(code string) bool {
	for _, cd := range c.Coding {
		if cd.Code == code {
			return true
		}
	}
	return false
}

func (b bundle) next() string {
	for _, l := range b.Link {
		if l.Relation == "next" {
			return l.URL
		}
	}
	return ""
}

// partial collects the vitals seen for one patient on one day.
type partial struct {
	rec     model.Record
	order   int
	seenSys bool
	seenDia bool
	seenHR  bool
}

func (p *partial) complete() bool {
	return p.seenSys && p.seenDia && p.seenHR
}

// recordJoiner folds observations into records keyed by patient and day.
type recordJoiner struct {
	byKey      map[string]*partial
	incomplete int
}

func newRecordJoiner() *recordJoiner {
	return &recordJoiner{byKey: make(map[string]*partial)}
}

func (j *recordJoiner) add(obs observation) {
	if obs.ResourceType != "" && obs.ResourceType != "Observation" {
		return
	}
	if obs.Status == "entered-in-error" || obs.Status == "cancelled" {
		return
	}
	patientID := patientFromReference(obs.Subject.Reference)
	day := dayOf(obs.EffectiveDateTime, obs.Issued)
	if patientID == "" || day == "" {
		return
	}

	key := patientID + "|" + day
	p, ok := j.byKey[key]
	if !ok {
		p = &partial{rec: model.Record{Date: day, PatientID: patientID}, order: len(j.byKey)}
		j.byKey[key] = p
	}

	switch {
	case obs.Code.has(codeBloodPressurePanel):
		for _, c := range obs.Component {
			p.apply(c.Code, c.ValueQuantity)
		}
	default:
		p.apply(obs.Code, obs.ValueQuantity)
	}
}

func (p *partial) apply(code codeableConcept, q *quantity) {
	if q == nil {
		return
	}
	v := int(math.Round(q.Value))
	switch {
	case code.has(codeSystolic):
		p.rec.Systolic, p.seenSys = v, true
	case code.has(codeDiastolic):
		p.rec.Diastolic, p.seenDia = v, true
	case code.has(codeHeartRate):
		p.rec.HeartRate, p.seenHR = v, true
	}
}

// records returns the complete records sorted by day, then first appearance.
// Patient-days missing any of the three vitals are dropped and counted in incomplete.
func (j *recordJoiner) records() []model.Record {
	parts := make([]*partial, 0, len(j.byKey))
	j.incomplete = 0
	for _, p := range j.byKey {
		if !p.complete() {
			j.incomplete++
			continue
		}
		parts = append(parts, p)
	}
	sort.Slice(parts, func(a, b int) bool {
		if parts[a].rec.Date != parts[b].rec.Date {
			return parts[a].rec.Date < parts[b].rec.Date
		}
		return parts[a].order < parts[b].order
	})
	out := make([]model.Record, len(parts))
	for i, p := range parts {
		out[i] = p.rec
	}
	return out
}

func patientFromReference(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// dayOf returns the calendar date of the first parseable FHIR dateTime. The date is
// taken as written, in the offset the observation was recorded in.
func dayOf(values ...string) string {
	for _, v := range values {
		if len(v) < len(model.DateLayout) {
			continue
		}
		if t, err := time.Parse(model.DateLayout, v[:len(model.DateLayout)]); err == nil {
			return t.Format(model.DateLayout)
		}
	}
	return ""
}
