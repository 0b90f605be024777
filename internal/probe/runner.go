package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/cardioviz/pkg/logger"
)

// Run executes the complete probe against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("probe")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting cardioviz probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("duplicates", cfg.Duplicates),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Submit refresh requests concurrently
	accepted := submitRefreshes(ctx, cfg, client, newRequestIDs(cfg.Requests), stats)
	log.Info(ctx, "refresh requests submitted",
		logger.Int("accepted", stats.Accepted),
		logger.Int("backpressure", stats.Backpressure),
		logger.Int("failed", stats.Failed),
	)

	// Step 3: Resubmit accepted ids; every one must come back as a duplicate
	if err := verifyIdempotency(ctx, cfg, client, accepted, stats); err != nil {
		return stats, err
	}

	// Step 4: Wait for the refreshes to finish
	view, err := waitSettled(ctx, cfg, client)
	if err != nil {
		return stats, err
	}

	// Step 5: Verify the view and render the active panels
	if err := verifyView(view); err != nil {
		return stats, err
	}
	if err := fetchCharts(ctx, client, view, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, view, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := client.getJSON(ctx, "/api/health", &health); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if health.Status != "healthy" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, health.Status)
	}
	logger.Get().Named("probe").Info(ctx, "service is healthy", logger.String("version", health.Version))
	return nil
}

func verifyIdempotency(ctx context.Context, cfg *Config, client *HTTPClient, accepted []string, stats *Stats) error {
	n := min(cfg.Duplicates, len(accepted))
	if n == 0 {
		return nil
	}
	before := stats.Duplicate
	submitRefreshes(ctx, cfg, client, accepted[:n], stats)
	if got := stats.Duplicate - before; got != n {
		return fmt.Errorf("%w: %d of %d resubmissions reported as duplicate", ErrIdempotency, got, n)
	}
	return nil
}

// waitSettled polls the view until no refresh is running and one has completed.
func waitSettled(ctx context.Context, cfg *Config, client *HTTPClient) (View, error) {
	deadline := time.Now().Add(cfg.SettleAfter)
	for {
		var v View
		if err := client.getJSON(ctx, "/api/view", &v); err != nil {
			return View{}, err
		}
		if !v.Loading && (v.RefreshedAt != nil || v.LastError != "") {
			return v, nil
		}
		if time.Now().After(deadline) {
			return v, fmt.Errorf("%w after %s", ErrNotSettled, cfg.SettleAfter)
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(cfg.PollEvery):
		}
	}
}

func fetchCharts(ctx context.Context, client *HTTPClient, v View, stats *Stats) error {
	for _, p := range v.Panels {
		if !p.Active {
			continue
		}
		resp, err := client.Get(ctx, "/api/panels/"+p.ID+"/chart.svg")
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			stats.ChartsRendered++
		case http.StatusNotFound:
			// not enough data for this panel
		default:
			return fmt.Errorf("chart %s: status %d", p.ID, resp.StatusCode)
		}
	}
	return nil
}

// displayFinalStats logs the probe statistics.
func displayFinalStats(ctx context.Context, v View, stats *Stats) {
	logger.Get().Named("probe").Info(ctx, "final statistics",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("backpressure", stats.Backpressure),
		logger.Int("failed", stats.Failed),
		logger.Int("records", v.Metrics.TotalMeasurements),
		logger.Int("patients", v.Metrics.UniquePatients),
		logger.Int("avgSystolic", v.Metrics.AvgSystolic),
		logger.Int("avgHeartRate", v.Metrics.AvgHeartRate),
		logger.Int("chartsRendered", stats.ChartsRendered),
		logger.Duration("duration", stats.Duration),
	)
}
