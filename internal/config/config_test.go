package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/zscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.ReadTimeout, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.WSMaxMessageBytes, convey.ShouldEqual, 1024)
			convey.So(cfg.AllowedOrigins, convey.ShouldBeEmpty)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "zscore")
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with broken fields", t, func() {
		convey.Convey("When several fields are invalid", func() {
			cfg := config.New(context.Background())
			cfg.Addr = ""
			cfg.LogFormat = "xml"
			cfg.ReadTimeout = 0
			err := cfg.Validate()

			convey.Convey("Then every key is named in the error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_format must be one of [text json]")
				convey.So(err.Error(), convey.ShouldContainSubstring, "read_timeout must be greater than 0")
			})
		})

		convey.Convey("When an allowed origin is blank", func() {
			cfg := config.New(context.Background())
			cfg.AllowedOrigins = []string{"https://example.org", ""}

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the log level is empty", func() {
			cfg := config.New(context.Background())
			cfg.LogLevel = ""

			convey.Convey("Then it is accepted and treated as info downstream", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
