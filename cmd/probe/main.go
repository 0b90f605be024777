package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/cardioviz/internal/probe"
	"github.com/okian/cardioviz/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests     = 5
	defaultDuplicates   = 1
	defaultWorkers      = 4
	defaultTimeout      = 10 * time.Second
	defaultSettle       = 30 * time.Second
	defaultPollInterval = 250 * time.Millisecond
	defaultProbeTimeout = 2 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9090", "Base URL of the service")
		requests   = flag.Int("requests", defaultRequests, "Number of distinct refresh requests to submit")
		duplicates = flag.Int("duplicates", defaultDuplicates, "Number of accepted request ids to resubmit")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Maximum wait for the refreshes to finish")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:     *baseURL,
		Requests:    *requests,
		Duplicates:  *duplicates,
		Workers:     max(*workers, 1),
		Timeout:     *timeout,
		SettleAfter: *settle,
		PollEvery:   defaultPollInterval,
		Verbose:     *verbose,
	}

	if _, err := probe.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
