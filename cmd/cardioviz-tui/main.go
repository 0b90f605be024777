// Command cardioviz-tui shows the dashboard in a terminal, with its own in-process session.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/cardioviz/internal/adapters/tui"
	app "github.com/okian/cardioviz/internal/app"
	"github.com/okian/cardioviz/internal/config"
	"github.com/okian/cardioviz/pkg/logger"
)

const logFilePermission = 0o600

func main() {
	logFile := flag.String("log", "", "Write logs to this file (default: discard, the screen is in use)")
	flag.Parse()

	if err := run(*logFile); err != nil {
		os.Stderr.WriteString("cardioviz-tui: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(logFile string) error {
	// Logs would corrupt the screen, so they go to a file or nowhere.
	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger.SetOutput(out)
	if err := logger.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	svc, err := app.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	return tui.New(screen, svc, tui.WithLogger(logger.Named("tui"))).Run(ctx)
}
