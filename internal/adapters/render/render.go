// Package render draws the dashboard panels as SVG or PNG charts.
package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/cardioviz/internal/domain/aggregate"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
)

const (
	defaultWidth  = 800
	defaultHeight = 360
	rangePadding  = 10
)

var (
	colorSystolic  = drawing.ColorFromHex("ef4444")
	colorDiastolic = drawing.ColorFromHex("3b82f6")
	colorHeartRate = drawing.ColorFromHex("10b981")
)

// Format selects the output encoding.
type Format int

// Supported formats.
const (
	SVG Format = iota
	PNG
)

// ContentType returns the HTTP media type of f.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Option adjusts chart rendering.
type Option func(*options)

type options struct {
	width, height int
}

// WithSize sets the chart dimensions in pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// Panel renders the chart of panel p. records feed the time series panels and stats the
// patient summary.
func Panel(p panel.ID, f Format, records []model.Record, stats []aggregate.PatientStat, opts ...Option) ([]byte, error) {
	o := options{width: defaultWidth, height: defaultHeight}
	for _, opt := range opts {
		opt(&o)
	}

	var r renderable
	var err error
	switch p {
	case panel.BloodPressure:
		r, err = bloodPressure(records, o)
	case panel.HeartRate:
		r, err = heartRate(records, o)
	case panel.PatientSummary:
		r, err = patientSummary(stats, o)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, p)
	}
	if err != nil {
		return nil, err
	}

	provider := chart.SVG
	if f == PNG {
		provider = chart.PNG
	}
	var buf bytes.Buffer
	if err := r.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRender, p, err)
	}
	return buf.Bytes(), nil
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

type point struct {
	day   time.Time
	value float64
}

// series converts records into date-ordered points, dropping unparseable dates.
func series(records []model.Record, value func(model.Record) int) []point {
	out := make([]point, 0, len(records))
	for _, r := range records {
		day, err := r.Day()
		if err != nil {
			continue
		}
		out = append(out, point{day: day, value: float64(value(r))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out
}

func split(points []point) ([]time.Time, []float64) {
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.day, p.value
	}
	return xs, ys
}

// chartable requires two distinct days so the x range is not empty.
func chartable(points []point) bool {
	if len(points) < 2 {
		return false
	}
	first := points[0].day
	for _, p := range points[1:] {
		if !p.day.Equal(first) {
			return true
		}
	}
	return false
}

// yRange pads the value span so flat series still get a non-zero range.
func yRange(values ...[]float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return &chart.ContinuousRange{Min: math.Max(0, lo-rangePadding), Max: hi + rangePadding}
}

func dateAxis() chart.XAxis {
	return chart.XAxis{
		Name:           "Date",
		ValueFormatter: chart.TimeValueFormatterWithFormat(model.DateLayout),
	}
}

func bloodPressure(records []model.Record, o options) (renderable, error) {
	sys := series(records, func(r model.Record) int { return r.Systolic })
	dia := series(records, func(r model.Record) int { return r.Diastolic })
	if !chartable(sys) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, panel.BloodPressure)
	}
	xs, sysY := split(sys)
	_, diaY := split(dia)

	ch := &chart.Chart{
		Title:      panel.BloodPressure.Title(),
		Width:      o.width,
		Height:     o.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      dateAxis(),
		YAxis:      chart.YAxis{Name: "mmHg", Range: yRange(sysY, diaY)},
		// no series is mapped to the secondary axis; drawing it yields NaN ticks
		YAxisSecondary: chart.YAxis{Style: chart.Hidden()},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Systolic", XValues: xs, YValues: sysY, Style: lineStyle(colorSystolic)},
			chart.TimeSeries{Name: "Diastolic", XValues: xs, YValues: diaY, Style: lineStyle(colorDiastolic)},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch, nil
}

func heartRate(records []model.Record, o options) (renderable, error) {
	hr := series(records, func(r model.Record) int { return r.HeartRate })
	if !chartable(hr) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, panel.HeartRate)
	}
	xs, ys := split(hr)

	return &chart.Chart{
		Title:          panel.HeartRate.Title(),
		Width:          o.width,
		Height:         o.height,
		Background:     chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:          dateAxis(),
		YAxis:          chart.YAxis{Name: "bpm", Range: yRange(ys)},
		YAxisSecondary: chart.YAxis{Style: chart.Hidden()},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Heart Rate", XValues: xs, YValues: ys, Style: pointStyle(colorHeartRate)},
		},
	}, nil
}

func patientSummary(stats []aggregate.PatientStat, o options) (renderable, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, panel.PatientSummary)
	}
	bars := make([]chart.Value, 0, 2*len(stats))
	var values []float64
	for _, s := range stats {
		bars = append(bars,
			chart.Value{Label: s.PatientID + " sys", Value: float64(s.AvgSystolic), Style: barStyle(colorSystolic)},
			chart.Value{Label: s.PatientID + " hr", Value: float64(s.AvgHeartRate), Style: barStyle(colorHeartRate)},
		)
		values = append(values, float64(s.AvgSystolic), float64(s.AvgHeartRate))
	}
	rng := yRange(values)
	rng.Min = 0

	return &chart.BarChart{
		Title:      panel.PatientSummary.Title(),
		Width:      o.width,
		Height:     o.height,
		BarWidth:   barWidth(o.width, len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis:      chart.YAxis{Range: rng},
		Bars:       bars,
	}, nil
}

// barWidth shrinks bars so many patients still fit the canvas.
func barWidth(width, bars int) int {
	w := width / (3 * bars)
	return max(4, min(28, w))
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3}
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{StrokeWidth: 0, StrokeColor: drawing.ColorTransparent, DotWidth: 4, DotColor: col}
}

func barStyle(col drawing.Color) chart.Style {
	return chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1}
}
