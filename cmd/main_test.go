package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/drcal/internal/adapters/http/api"
	app "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/config"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("DRCAL_ADDR", ":8080")
			_ = os.Setenv("DRCAL_AUTO_SCHEDULE_CRON", "@weekly")
			defer func() {
				_ = os.Unsetenv("DRCAL_ADDR")
				_ = os.Unsetenv("DRCAL_AUTO_SCHEDULE_CRON")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AutoScheduleCron, convey.ShouldEqual, "@weekly")
			})

			convey.Convey("And the service should start its scheduler", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				svc := newService(cfg, logger.NewNop())
				convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
				defer svc.Stop()

				stats := svc.GetStats()
				convey.So(stats["autoScheduleActive"], convey.ShouldEqual, true)
			})
		})

		convey.Convey("When the configured auto event shape differs from the default", func() {
			cfg := config.New()
			cfg.AutoStartHour = 6
			cfg.AutoDurationMinutes = 90
			svc := newService(cfg, logger.NewNop())

			ev, err := svc.AutoSchedule(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(ev.Start.Hour(), convey.ShouldEqual, 6)
			convey.So(ev.Duration(), convey.ShouldEqual, 90*time.Minute)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the wired handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc := newService(cfg, logger.NewNop())
		handler, err := newHandler(ctx, cfg, svc, logger.NewNop())
		convey.So(err, convey.ShouldBeNil)

		get := func(path string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			return rec
		}

		convey.Convey("Then pages, API, docs and health are all served", func() {
			for _, path := range []string{"/", "/schedule_event", "/api/events", "/events", "/events.ics", "/api-docs", "/openapi.yaml", "/healthz", "/stats"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And every response carries a request id", func() {
			convey.So(get("/api/events").Header().Get(api.HeaderRequestID), convey.ShouldNotBeEmpty)
		})

		convey.Convey("And a created event shows up on the index page", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(`{"schedule_type":"auto"}`))
			req.Header.Set("Content-Type", "application/json")
			handler.ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)

			convey.So(get("/").Body.String(), convey.ShouldContainSubstring, "Auto Scheduled DR Test")
			convey.So(svc.List(ctx)[0].Kind, convey.ShouldEqual, model.KindAuto)
		})
	})

	convey.Convey("Given a rate limited handler", t, func() {
		cfg := config.New()
		cfg.RateLimitRPS = 0.5
		cfg.RateLimitBurst = 1
		handler, err := newHandler(context.Background(), cfg, app.New(), logger.NewNop())
		convey.So(err, convey.ShouldBeNil)

		call := func(path string) int {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			return rec.Code
		}

		convey.So(call("/api/events"), convey.ShouldEqual, http.StatusOK)
		convey.So(call("/api/events"), convey.ShouldEqual, http.StatusTooManyRequests)
		convey.So(call("/healthz"), convey.ShouldEqual, http.StatusOK)
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a server on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg, logger.NewNop()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given an address that cannot be bound", t, func() {
		cfg := config.New()
		cfg.Addr = "256.0.0.1:99999"

		convey.So(run(context.Background(), cfg, logger.NewNop()), convey.ShouldNotBeNil)
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an invalid log format in the environment", t, func() {
		_ = os.Setenv("DRCAL_LOG_FORMAT", "xml")
		defer func() { _ = os.Unsetenv("DRCAL_LOG_FORMAT") }()

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given the background updaters", t, func() {
		convey.Convey("Then they return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("And one-off updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}
