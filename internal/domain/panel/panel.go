// Package panel models which dashboard panels are visible.
//
// Membership is the only state: toggling order never affects the result, and every
// transition returns a new Set.
package panel

import (
	"errors"
	"fmt"
	"strings"
)

// ID names a chart panel. Only the constants below are valid.
type ID string

// The fixed panel enumeration, in display order.
const (
	BloodPressure  ID = "blood_pressure"
	HeartRate      ID = "heart_rate"
	PatientSummary ID = "patient_summary"
)

// ErrUnknownPanel is returned by Parse for identifiers outside the enumeration.
var ErrUnknownPanel = errors.New("unknown panel")

var all = []ID{BloodPressure, HeartRate, PatientSummary}

var titles = map[ID]string{
	BloodPressure:  "Blood Pressure Trends",
	HeartRate:      "Heart Rate Analysis",
	PatientSummary: "Patient Summary",
}

// short aliases used by the first dashboard build
var aliases = map[string]ID{
	"bp":      BloodPressure,
	"hr":      HeartRate,
	"summary": PatientSummary,
}

// All returns the enumeration in display order.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)
	return out
}

// Title returns the human readable panel name.
func (id ID) Title() string {
	return titles[id]
}

// Parse validates s against the enumeration. Short aliases bp, hr and summary are accepted.
func Parse(s string) (ID, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if id, ok := aliases[key]; ok {
		return id, nil
	}
	id := ID(key)
	if _, ok := titles[id]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPanel, s)
}

// ParseAll parses every identifier, failing on the first unknown one.
func ParseAll(ss []string) (Set, error) {
	ids := make([]ID, 0, len(ss))
	for _, s := range ss {
		id, err := Parse(s)
		if err != nil {
			return Set{}, err
		}
		ids = append(ids, id)
	}
	return NewSet(ids...), nil
}

// Set is an immutable set of panel ids. The zero value is the empty set.
type Set struct {
	members map[ID]struct{}
}

// NewSet builds a set from ids; duplicates collapse.
func NewSet(ids ...ID) Set {
	m := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{members: m}
}

// Has reports membership.
func (s Set) Has(id ID) bool {
	_, ok := s.members[id]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.members)
}

// IDs returns members in enumeration order.
func (s Set) IDs() []ID {
	out := make([]ID, 0, len(s.members))
	for _, id := range all {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.members {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Toggle returns a copy of current with p removed if present, inserted otherwise.
func Toggle(current Set, p ID) Set {
	next := make(map[ID]struct{}, len(current.members)+1)
	for id := range current.members {
		next[id] = struct{}{}
	}
	if _, ok := next[p]; ok {
		delete(next, p)
	} else {
		next[p] = struct{}{}
	}
	return Set{members: next}
}

// State pairs a panel with its visibility, for rendering checkboxes.
type State struct {
	ID     ID     `json:"id"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// States lists every panel of the enumeration with its membership in s.
func States(s Set) []State {
	out := make([]State, 0, len(all))
	for _, id := range all {
		out = append(out, State{ID: id, Title: id.Title(), Active: s.Has(id)})
	}
	return out
}
