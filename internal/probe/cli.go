package probe

import "os"

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`Cardioviz Probe
===============

Smoke test for a running cardioviz server: submits refresh requests, checks that
resubmitted request ids are recognised as duplicates, waits for the dashboard to
settle, verifies the summary metrics against the records and renders every
active panel.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9090")
  -requests int
        Number of distinct refresh requests to submit (default 5)
  -duplicates int
        Number of accepted request ids to resubmit (default 1)
  -workers int
        Number of concurrent submitters (default 4)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        Maximum wait for the refreshes to finish (default 30s)
  -verbose
        Log every response
  -help
        Show this help message

Examples:
  # Probe a local server
  go run ./cmd/probe

  # Flood the refresh queue to observe backpressure
  go run ./cmd/probe -requests 50 -workers 16
`)
}
