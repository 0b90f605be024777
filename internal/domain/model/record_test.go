package model_test

import (
	"errors"
	"testing"

	"github.com/okian/cardioviz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordValidate(t *testing.T) {
	Convey("Given measurement records", t, func() {
		Convey("When every sample record is validated", func() {
			Convey("Then all pass", func() {
				for _, r := range model.SampleRecords() {
					So(r.Validate(), ShouldBeNil)
				}
			})
		})

		Convey("When the patient id is blank", func() {
			err := model.Record{Date: "2024-01-01", PatientID: "  "}.Validate()

			Convey("Then validation fails with ErrInvalidRecord", func() {
				So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "missing patientId")
			})
		})

		Convey("When the date is not a calendar date", func() {
			err := model.Record{Date: "01/02/2024", PatientID: "P001"}.Validate()

			Convey("Then validation fails", func() {
				So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
			})
		})

		Convey("When a measurement is negative", func() {
			err := model.Record{Date: "2024-01-01", PatientID: "P001", HeartRate: -1}.Validate()

			Convey("Then validation fails", func() {
				So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})
}

func TestPatients(t *testing.T) {
	Convey("Given the sample records", t, func() {
		records := model.SampleRecords()

		Convey("When deriving patients", func() {
			patients := model.Patients(records)

			Convey("Then each distinct id appears once in first-seen order", func() {
				So(patients, ShouldResemble, []model.Patient{
					{ID: "P001", Measurements: 2, FirstSeen: "2024-01-01", LastSeen: "2024-01-02"},
					{ID: "P002", Measurements: 2, FirstSeen: "2024-01-03", LastSeen: "2024-01-04"},
					{ID: "P003", Measurements: 1, FirstSeen: "2024-01-05", LastSeen: "2024-01-05"},
				})
			})
		})

		Convey("When records arrive out of date order", func() {
			patients := model.Patients([]model.Record{
				{Date: "2024-02-10", PatientID: "P9"},
				{Date: "2024-02-01", PatientID: "P9"},
			})

			Convey("Then first and last seen still bracket the dates", func() {
				So(patients[0].FirstSeen, ShouldEqual, "2024-02-01")
				So(patients[0].LastSeen, ShouldEqual, "2024-02-10")
			})
		})

		Convey("When filtering by patient", func() {
			So(model.FilterByPatient(records, "P002"), ShouldHaveLength, 2)
			So(model.FilterByPatient(records, ""), ShouldHaveLength, 5)
			So(model.FilterByPatient(records, "P404"), ShouldBeEmpty)
		})

		Convey("When there are no records", func() {
			So(model.Patients(nil), ShouldBeEmpty)
		})
	})
}
