package config_test

import (
	"testing"

	"github.com/okian/cardioviz/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.Source, convey.ShouldEqual, config.SourceMock)
			convey.So(cfg.Region, convey.ShouldEqual, "us-west-2")
			convey.So(cfg.MockLatencyMinMS, convey.ShouldEqual, 1000)
			convey.So(cfg.RefreshQueueSize, convey.ShouldEqual, 1)
			convey.So(cfg.DefaultPanels, convey.ShouldResemble, []string{"blood_pressure", "heart_rate"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
