package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/cardioviz/internal/adapters/http/api"
	"github.com/okian/cardioviz/internal/adapters/source"
	service "github.com/okian/cardioviz/internal/app"
	"github.com/okian/cardioviz/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Requests:    3,
		Duplicates:  1,
		Workers:     2,
		Timeout:     2 * time.Second,
		SettleAfter: 3 * time.Second,
		PollEvery:   10 * time.Millisecond,
	}
}

func TestRunAgainstService(t *testing.T) {
	convey.Convey("Given a running dashboard server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := service.New(
			service.WithSource(source.NewMock(source.WithLatencyRange(0, 0))),
			service.WithInitialRefresh(false),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, "test").Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		convey.Convey("When the probe runs", func() {
			stats, err := Run(ctx, testConfig(srv.URL))

			convey.Convey("Then every check passes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Accepted, convey.ShouldBeGreaterThanOrEqualTo, 1)
				convey.So(stats.Duplicate, convey.ShouldEqual, 1)
				convey.So(stats.Accepted+stats.Backpressure+stats.Duplicate, convey.ShouldEqual, stats.Submitted)
				convey.So(stats.ChartsRendered, convey.ShouldBeGreaterThanOrEqualTo, 1)
				convey.So(stats.Duration, convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}

// fakeServer answers health and refresh calls and always reports a loading view.
func fakeServer(healthy bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("POST /api/refresh", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(AckResponse{Status: "accepted"})
	})
	mux.HandleFunc("GET /api/view", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"loading": true})
	})
	return httptest.NewServer(mux)
}

func TestRunFailures(t *testing.T) {
	convey.Convey("Given a misbehaving server", t, func() {
		ctx := context.Background()

		convey.Convey("When the health check fails", func() {
			srv := fakeServer(false)
			defer srv.Close()
			_, err := Run(ctx, testConfig(srv.URL))

			convey.Convey("Then the probe reports it unhealthy", func() {
				convey.So(errors.Is(err, ErrUnhealthy), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When resubmitted ids are accepted again", func() {
			srv := fakeServer(true)
			defer srv.Close()
			_, err := Run(ctx, testConfig(srv.URL))

			convey.Convey("Then idempotency is reported broken", func() {
				convey.So(errors.Is(err, ErrIdempotency), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the view never stops loading", func() {
			srv := fakeServer(true)
			defer srv.Close()
			cfg := testConfig(srv.URL)
			cfg.Duplicates = 0
			cfg.SettleAfter = 50 * time.Millisecond
			_, err := Run(ctx, cfg)

			convey.Convey("Then the probe gives up", func() {
				convey.So(errors.Is(err, ErrNotSettled), convey.ShouldBeTrue)
			})
		})
	})
}

func decodeView(raw string) View {
	var v View
	_ = json.Unmarshal([]byte(raw), &v)
	return v
}

func TestVerifyView(t *testing.T) {
	convey.Convey("Given dashboard views", t, func() {
		convey.Convey("When the summary matches the records", func() {
			v := decodeView(`{"records":[{"patientId":"a"},{"patientId":"b"},{"patientId":"a"}],
				"metrics":{"totalMeasurements":3,"uniquePatients":2,"avgSystolic":120,"avgHeartRate":70},
				"patients":[{"id":"a"},{"id":"b"}]}`)
			convey.So(verifyView(v), convey.ShouldBeNil)
		})

		convey.Convey("When the view is empty", func() {
			convey.So(verifyView(decodeView(`{"records":[],"metrics":{}}`)), convey.ShouldBeNil)
		})

		convey.Convey("When the totals disagree", func() {
			v := decodeView(`{"records":[{"patientId":"a"}],"metrics":{"totalMeasurements":2,"uniquePatients":1},"patients":[{"id":"a"}]}`)
			convey.So(errors.Is(verifyView(v), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("When the patient count disagrees", func() {
			v := decodeView(`{"records":[{"patientId":"a"},{"patientId":"b"}],"metrics":{"totalMeasurements":2,"uniquePatients":1},"patients":[{"id":"a"}]}`)
			convey.So(errors.Is(verifyView(v), ErrInconsistent), convey.ShouldBeTrue)
		})

		convey.Convey("When a patient is selected", func() {
			v := decodeView(`{"selectedPatient":"a","records":[{"patientId":"a"},{"patientId":"a"}],
				"metrics":{"totalMeasurements":2,"uniquePatients":1,"avgSystolic":120,"avgHeartRate":70},
				"patients":[{"id":"a"},{"id":"b"},{"id":"c"}]}`)

			convey.Convey("Then the full patient list is not compared with the filtered records", func() {
				convey.So(verifyView(v), convey.ShouldBeNil)
			})

			convey.Convey("And the filtered totals are still checked", func() {
				v.Metrics.UniquePatients = 3
				convey.So(errors.Is(verifyView(v), ErrInconsistent), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the last refresh failed", func() {
			v := decodeView(`{"lastError":"fetch failed"}`)
			convey.So(errors.Is(verifyView(v), ErrInconsistent), convey.ShouldBeTrue)
		})
	})
}
