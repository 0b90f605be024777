package aggregate_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/cardioviz/internal/domain/aggregate"
	"github.com/okian/cardioviz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompute(t *testing.T) {
	Convey("Given the five canonical records", t, func() {
		records := model.SampleRecords()

		Convey("When computing the summary", func() {
			s := aggregate.Compute(records)

			Convey("Then it matches the hand-computed values", func() {
				So(s, ShouldResemble, aggregate.Summary{
					TotalMeasurements: 5,
					UniquePatients:    3,
					AvgSystolic:       123,
					AvgHeartRate:      74, // 73.6 rounds up
				})
			})
		})

		Convey("When the input is not mutated by the computation", func() {
			before := model.SampleRecords()
			_ = aggregate.Compute(records)
			So(records, ShouldResemble, before)
		})
	})

	Convey("Given no records", t, func() {
		Convey("Then the summary is all zero", func() {
			So(aggregate.Compute(nil), ShouldResemble, aggregate.Summary{})
			So(aggregate.Compute([]model.Record{}), ShouldResemble, aggregate.Summary{})
		})
	})

	Convey("Given an average that lands exactly on .5", t, func() {
		records := []model.Record{
			{PatientID: "A", Systolic: 120, HeartRate: 72},
			{PatientID: "A", Systolic: 121, HeartRate: 73},
		}

		Convey("Then it rounds up", func() {
			s := aggregate.Compute(records)
			So(s.AvgSystolic, ShouldEqual, 121)
			So(s.AvgHeartRate, ShouldEqual, 73)
			So(s.UniquePatients, ShouldEqual, 1)
		})
	})
}

func TestComputeProperties(t *testing.T) {
	Convey("Given random record sequences", t, func() {
		rng := rand.New(rand.NewSource(7))

		for trial := 0; trial < 50; trial++ {
			n := rng.Intn(40)
			records := make([]model.Record, n)
			ids := make(map[string]struct{})
			for i := range records {
				id := fmt.Sprintf("P%03d", rng.Intn(10))
				ids[id] = struct{}{}
				records[i] = model.Record{
					Date:      "2024-01-01",
					Systolic:  90 + rng.Intn(80),
					Diastolic: 60 + rng.Intn(40),
					HeartRate: 50 + rng.Intn(70),
					PatientID: id,
				}
			}

			s := aggregate.Compute(records)
			So(s.TotalMeasurements, ShouldEqual, len(records))
			So(s.UniquePatients, ShouldEqual, len(ids))
			if n == 0 {
				So(s.AvgSystolic, ShouldEqual, 0)
				So(s.AvgHeartRate, ShouldEqual, 0)
			} else {
				So(s.AvgSystolic, ShouldBeBetweenOrEqual, 90, 169)
				So(s.AvgHeartRate, ShouldBeBetweenOrEqual, 50, 119)
			}
		}
	})
}

func TestByPatient(t *testing.T) {
	Convey("Given the five canonical records", t, func() {
		stats := aggregate.ByPatient(model.SampleRecords())

		Convey("Then each patient gets rounded averages in first-seen order", func() {
			So(stats, ShouldResemble, []aggregate.PatientStat{
				{PatientID: "P001", Measurements: 2, AvgSystolic: 123, AvgDiastolic: 81, AvgHeartRate: 74},
				{PatientID: "P002", Measurements: 2, AvgSystolic: 124, AvgDiastolic: 82, AvgHeartRate: 74},
				{PatientID: "P003", Measurements: 1, AvgSystolic: 122, AvgDiastolic: 81, AvgHeartRate: 73},
			})
		})
	})

	Convey("Given no records", t, func() {
		So(aggregate.ByPatient(nil), ShouldBeEmpty)
	})
}
