package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
)

// Kind selects how a line is styled on screen.
type Kind int

// Line kinds.
const (
	Plain Kind = iota
	Heading
	Muted
	Alert
)

// Line is one row of the terminal view.
type Line struct {
	Text string
	Kind Kind
}

const (
	helpText = "1-3 toggle panels   r refresh   p next patient   q quit"
	label    = 11
)

var ticks = []rune("▁▂▃▄▅▆▇█")

// Layout turns a snapshot into the rows of the terminal view. width bounds the sparklines.
func Layout(snap dashboard.Snapshot, width int) []Line {
	var lines []Line
	add := func(kind Kind, format string, args ...any) {
		lines = append(lines, Line{Text: fmt.Sprintf(format, args...), Kind: kind})
	}

	status := "idle"
	if snap.Loading {
		status = "loading..."
	}
	add(Heading, "Cardiovascular Dashboard  [%s]", status)

	patient := "all"
	if snap.SelectedPatient != "" {
		patient = snap.SelectedPatient
	}
	refreshed := "never"
	if snap.RefreshedAt != nil {
		refreshed = snap.RefreshedAt.Format("2006-01-02 15:04:05")
	}
	add(Muted, "Patient: %s   Refreshed: %s", patient, refreshed)
	if snap.LastError != "" {
		add(Alert, "Last refresh failed: %s", snap.LastError)
	}
	add(Plain, "")

	m := snap.Metrics
	add(Plain, "Total Measurements %d   Unique Patients %d   Avg Systolic %d mmHg   Avg Heart Rate %d bpm",
		m.TotalMeasurements, m.UniquePatients, m.AvgSystolic, m.AvgHeartRate)
	add(Plain, "")

	boxes := make([]string, 0, len(snap.Panels))
	for i, st := range snap.Panels {
		mark := " "
		if st.Active {
			mark = "x"
		}
		boxes = append(boxes, fmt.Sprintf("[%s] %d %s", mark, i+1, st.Title))
	}
	add(Plain, "%s", strings.Join(boxes, "   "))
	add(Plain, "")

	spark := max(8, width-label-14)
	for _, id := range snap.Active.IDs() {
		add(Heading, "%s", id.Title())
		switch id {
		case panel.BloodPressure:
			lines = append(lines,
				seriesLine("systolic", column(snap.Records, func(r model.Record) int { return r.Systolic }), spark),
				seriesLine("diastolic", column(snap.Records, func(r model.Record) int { return r.Diastolic }), spark),
			)
		case panel.HeartRate:
			lines = append(lines, seriesLine("bpm", column(snap.Records, func(r model.Record) int { return r.HeartRate }), spark))
		case panel.PatientSummary:
			if len(snap.PatientStats) == 0 {
				add(Muted, "  no data")
			}
			for _, s := range snap.PatientStats {
				add(Plain, "  %-8s %2d readings   sys %3d   dia %3d   hr %3d",
					s.PatientID, s.Measurements, s.AvgSystolic, s.AvgDiastolic, s.AvgHeartRate)
			}
		}
		add(Plain, "")
	}

	add(Muted, "%s", helpText)
	return lines
}

func column(records []model.Record, value func(model.Record) int) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = value(r)
	}
	return out
}

func seriesLine(name string, values []int, width int) Line {
	if len(values) == 0 {
		return Line{Text: fmt.Sprintf("  %-*s no data", label, name), Kind: Muted}
	}
	lo, hi := bounds(values)
	return Line{Text: fmt.Sprintf("  %-*s %s  %d-%d", label, name, Sparkline(values, width), lo, hi)}
}

func bounds(values []int) (int, int) {
	lo, hi := math.MaxInt, math.MinInt
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi
}

// Sparkline renders values as block characters, keeping the most recent width values.
// A flat series renders at mid height.
func Sparkline(values []int, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := bounds(values)
	var b strings.Builder
	for _, v := range values {
		i := len(ticks) / 2
		if hi > lo {
			i = (v - lo) * (len(ticks) - 1) / (hi - lo)
		}
		b.WriteRune(ticks[i])
	}
	return b.String()
}
