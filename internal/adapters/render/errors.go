package render

import "errors"

// Sentinel kinds for render errors.
var (
	// ErrNoData means the records cannot produce a meaningful chart, e.g. fewer than two days.
	ErrNoData = errors.New("not enough data to chart")
	// ErrUnknownPanel rejects panels without a chart.
	ErrUnknownPanel = errors.New("no chart for panel")
	// ErrRender wraps a failure inside the chart library.
	ErrRender = errors.New("render chart")
)
