package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/zscore/internal/adapters/http/live"
	service "github.com/okian/zscore/internal/app"
	"github.com/okian/zscore/internal/config"
	"github.com/okian/zscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled server handler", t, func() {
		convey.So(logger.Init(logger.WithOutput(&bytes.Buffer{})), convey.ShouldBeNil)
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := service.New()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(ctx, cfg, svc, live.New(svc))

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then every surface is routed", func() {
			for path, want := range map[string]int{
				"/":             http.StatusOK,
				"/app.js":       http.StatusOK,
				"/healthz":      http.StatusOK,
				"/stats":        http.StatusOK,
				"/openapi.yaml": http.StatusOK,
				"/api-docs":     http.StatusOK,
				"/ws":           http.StatusBadRequest,
				"/missing":      http.StatusNotFound,
			} {
				convey.So(get(path).Code, convey.ShouldEqual, want)
			}
			convey.So(get("/api/v1/zscore?observedValue=1&mean=1&standardDeviation=1").Code,
				convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then every response carries a request ID", func() {
			convey.So(get("/stats").Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("When calculating through the full chain", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/zscore/calculate",
				strings.NewReader(`{"observedValue":"90","mean":"75","standardDeviation":"5"}`))
			h.ServeHTTP(w, req)

			convey.Convey("Then the service counts the calculation", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"interpretationTier":"SignificantlyAbove"`)
				convey.So(svc.GetStats()["calculations"], convey.ShouldEqual, int64(1))
			})
		})
	})
}

func TestReloader(t *testing.T) {
	convey.Convey("Given a reloader for the running config", t, func() {
		var buf bytes.Buffer
		convey.So(logger.Init(logger.WithOutput(&buf)), convey.ShouldBeNil)
		ctx := context.Background()
		cfg := config.New(ctx)
		apply := reloader(ctx, *cfg)
		convey.Reset(func() { _ = logger.SetLevelString("info") })

		convey.Convey("When the log level changes", func() {
			next := *cfg
			next.LogLevel = "debug"
			apply(&next)

			convey.Convey("Then it takes effect immediately", func() {
				convey.So(logger.Level().String(), convey.ShouldEqual, "DEBUG")
				convey.So(buf.String(), convey.ShouldContainSubstring, "log level changed")
				convey.So(buf.String(), convey.ShouldNotContainSubstring, "requires a restart")
			})
		})

		convey.Convey("When the listen address changes", func() {
			next := *cfg
			next.Addr = ":9999"
			apply(&next)

			convey.Convey("Then a restart warning is logged", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, "requires a restart")
			})
		})
	})
}
