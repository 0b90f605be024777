// Package tui is a terminal viewer for the dashboard built on tcell.
//
// Layout is a pure function from a snapshot to lines; App owns the screen, the key
// bindings and the redraw loop.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/cardioviz/internal/domain/dashboard"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
	"github.com/okian/cardioviz/pkg/logger"
)

const defaultRedrawInterval = 250 * time.Millisecond

// Controller is the dashboard surface the viewer drives.
type Controller interface {
	Snapshot() dashboard.Snapshot
	Toggle(p panel.ID) panel.Set
	Select(patientID string) error
	RequestRefresh(ctx context.Context, trigger string) error
}

// Option applies a configuration option to the App.
type Option func(*App)

// WithRedrawInterval sets how often the view is repainted without input.
func WithRedrawInterval(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.redraw = d
		}
	}
}

// WithLogger sets the viewer logger. Log output should not go to the terminal in use.
func WithLogger(l logger.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// App runs the terminal viewer on an initialised screen.
type App struct {
	screen tcell.Screen
	ctrl   Controller
	redraw time.Duration
	logger logger.Logger
}

// New creates a viewer. The caller initialises the screen and calls Fini after Run.
func New(screen tcell.Screen, ctrl Controller, opts ...Option) *App {
	a := &App{screen: screen, ctrl: ctrl, redraw: defaultRedrawInterval}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("tui")
	}
	return a
}

// Run paints the view and handles keys until q, Escape, Ctrl-C or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(a.redraw)
	defer ticker.Stop()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				a.screen.Sync()
			case *tcell.EventKey:
				if !a.handleKey(ctx, ev) {
					return nil
				}
			}
		}
		a.draw()
	}
}

// handleKey applies one key press and reports whether the viewer should keep running.
func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}

	switch r := ev.Rune(); r {
	case 'q', 'Q':
		return false
	case '1', '2', '3':
		ids := panel.All()
		a.ctrl.Toggle(ids[r-'1'])
	case 'r', 'R':
		if err := a.ctrl.RequestRefresh(ctx, model.TriggerTUI); err != nil {
			a.logger.Warn(ctx, "refresh not queued", logger.Error(err))
		}
	case 'p', 'P':
		next := nextPatient(a.ctrl.Snapshot())
		if err := a.ctrl.Select(next); err != nil && !errors.Is(err, dashboard.ErrUnknownPatient) {
			a.logger.Warn(ctx, "select patient", logger.Error(err))
		}
	}
	return true
}

// nextPatient cycles all -> first patient -> ... -> last patient -> all.
func nextPatient(snap dashboard.Snapshot) string {
	if len(snap.Patients) == 0 {
		return ""
	}
	if snap.SelectedPatient == "" {
		return snap.Patients[0].ID
	}
	for i, p := range snap.Patients {
		if p.ID == snap.SelectedPatient && i+1 < len(snap.Patients) {
			return snap.Patients[i+1].ID
		}
	}
	return ""
}

func (a *App) draw() {
	a.screen.Clear()
	w, h := a.screen.Size()
	for y, line := range Layout(a.ctrl.Snapshot(), w) {
		if y >= h {
			break
		}
		x := 0
		for _, r := range line.Text {
			if x >= w {
				break
			}
			a.screen.SetContent(x, y, r, nil, styleFor(line.Kind))
			x++
		}
	}
	a.screen.Show()
}

func styleFor(k Kind) tcell.Style {
	switch k {
	case Heading:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	case Muted:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	case Alert:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault
	}
}
