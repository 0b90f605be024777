package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/cardioviz/internal/adapters/mq/queue"
	"github.com/okian/cardioviz/internal/adapters/source"
	service "github.com/okian/cardioviz/internal/app"
	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/internal/domain/panel"
	"github.com/okian/cardioviz/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type refreshResult struct {
	req queue.Request
	err error
}

func newTestService(opts ...service.Option) (*service.Service, <-chan refreshResult) {
	results := make(chan refreshResult, 16)
	base := []service.Option{
		service.WithSource(source.NewMock(source.WithLatencyRange(0, 0))),
		service.WithTarget(model.Target{DatastoreID: "ds-test", Region: "us-west-2"}),
		service.WithRefreshHook(func(r queue.Request, err error) {
			select {
			case results <- refreshResult{req: r, err: err}:
			default:
			}
		}),
	}
	return service.New(append(base, opts...)...), results
}

func waitResult(results <-chan refreshResult) refreshResult {
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		return refreshResult{err: errors.New("timed out waiting for refresh")}
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 1)
			So(stats["dedupeSize"], ShouldEqual, 1024)
			So(stats["activePanels"], ShouldEqual, 2)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithQueueSize(4),
			service.WithDedupeSize(16),
			service.WithRefreshInterval(time.Minute),
			service.WithInitialRefresh(false),
		)

		Convey("Then it should be created successfully", func() {
			stats := svc.GetStats()
			So(stats["queueSize"], ShouldEqual, 4)
			So(stats["dedupeSize"], ShouldEqual, 16)
			So(stats["refreshIntervalMs"], ShouldEqual, int64(60_000))
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc, results := newTestService()
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then the startup refresh loads the records", func() {
				So(err, ShouldBeNil)
				res := waitResult(results)
				So(res.err, ShouldBeNil)
				So(res.req.Trigger, ShouldEqual, model.TriggerStartup)
				So(res.req.ID, ShouldNotBeEmpty)

				snap := svc.Snapshot()
				So(snap.Records, ShouldHaveLength, 5)
				So(snap.Metrics.UniquePatients, ShouldEqual, 3)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["datastoreId"], ShouldEqual, "ds-test")
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := newTestService(service.WithInitialRefresh(false))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})

			Convey("And refresh requests are rejected", func() {
				err := svc.RequestRefresh(ctx, model.TriggerAPI)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping again is safe", func() {
				svc.Stop()
			})
		})
	})
}

func TestService_RequestRefresh(t *testing.T) {
	Convey("Given a started service without a startup refresh", t, func() {
		svc, results := newTestService(service.WithInitialRefresh(false))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a refresh is requested", func() {
			err := svc.RequestRefresh(ctx, model.TriggerAPI)

			Convey("Then it runs and the request id is remembered", func() {
				So(err, ShouldBeNil)
				res := waitResult(results)
				So(res.err, ShouldBeNil)
				So(res.req.Trigger, ShouldEqual, model.TriggerAPI)
				So(svc.SeenAndRecord(ctx, res.req.ID), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same request id is submitted twice", func() {
			id := svc.NewRequestID()
			So(svc.SeenAndRecord(ctx, id), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, id), ShouldBeTrue)

			Convey("Then unrecording lets it through again", func() {
				svc.Unrecord(ctx, id)
				So(svc.SeenAndRecord(ctx, id), ShouldBeFalse)
			})
		})
	})

	Convey("Given a service whose generator repeats ids", t, func() {
		svc, results := newTestService(
			service.WithInitialRefresh(false),
			service.WithIDGenerator(func() string { return "fixed" }),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.RequestRefresh(ctx, model.TriggerAPI), ShouldBeNil)
		waitResult(results)

		Convey("Then the repeated id is rejected as a duplicate", func() {
			err := svc.RequestRefresh(ctx, model.TriggerAPI)
			So(errors.Is(err, service.ErrDuplicateRequest), ShouldBeTrue)
		})
	})

	Convey("Given a slow source and a queue of one", t, func() {
		slow := source.NewMock(source.WithLatencyRange(200*time.Millisecond, 200*time.Millisecond))
		svc, results := newTestService(service.WithSource(slow), service.WithInitialRefresh(false))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When requests pile up behind the running refresh", func() {
			So(svc.RequestRefresh(ctx, model.TriggerAPI), ShouldBeNil)
			// Wait for the worker to pick up the first request.
			for slow.Calls() == 0 {
				time.Sleep(5 * time.Millisecond)
			}
			So(svc.RequestRefresh(ctx, model.TriggerAPI), ShouldBeNil)
			err := svc.RequestRefresh(ctx, model.TriggerAPI)

			Convey("Then the overflow is refused with ErrFull", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 2)
				So(waitResult(results).err, ShouldBeNil)
				So(waitResult(results).err, ShouldBeNil)
			})
		})
	})
}

func TestService_RefreshNow(t *testing.T) {
	Convey("Given a service with a failing source", t, func() {
		mock := source.NewMock(source.WithLatencyRange(0, 0), source.WithFailure(errors.New("throttled")))
		svc := service.New(service.WithSource(mock))

		Convey("When refreshing synchronously", func() {
			err := svc.RefreshNow(context.Background())

			Convey("Then the failure is returned and surfaced", func() {
				So(errors.Is(err, source.ErrUnavailable), ShouldBeTrue)
				So(svc.Snapshot().LastError, ShouldContainSubstring, "throttled")
				So(svc.GetStats()["lastError"], ShouldContainSubstring, "throttled")
			})

			Convey("And a later successful refresh clears it", func() {
				mock.SetFailure(nil)
				So(svc.RefreshNow(context.Background()), ShouldBeNil)
				snap := svc.Snapshot()
				So(snap.LastError, ShouldBeEmpty)
				So(snap.Records, ShouldHaveLength, 5)
				So(svc.GetStats()["refreshedAt"], ShouldNotBeNil)
			})
		})
	})
}

func TestService_ViewControls(t *testing.T) {
	Convey("Given a service with loaded records", t, func() {
		svc := service.New(service.WithSource(source.NewMock(source.WithLatencyRange(0, 0))))
		So(svc.RefreshNow(context.Background()), ShouldBeNil)

		Convey("When toggling a panel", func() {
			set := svc.Toggle(panel.PatientSummary)

			Convey("Then it becomes active", func() {
				So(set.Has(panel.PatientSummary), ShouldBeTrue)
				So(svc.Snapshot().Active.Len(), ShouldEqual, 3)
			})
		})

		Convey("When selecting a patient", func() {
			So(svc.Select("P002"), ShouldBeNil)

			Convey("Then the view is filtered", func() {
				snap := svc.Snapshot()
				So(snap.SelectedPatient, ShouldEqual, "P002")
				So(snap.Records, ShouldHaveLength, 2)
			})

			Convey("And the patient can be looked up", func() {
				p, ok := svc.Patient("P002")
				So(ok, ShouldBeTrue)
				So(p.Measurements, ShouldEqual, 2)
			})
		})

		Convey("When selecting an unknown patient", func() {
			err := svc.Select("P404")
			So(err, ShouldNotBeNil)
		})
	})
}
