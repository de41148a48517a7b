package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/okian/drcal/internal/adapters/http/api"
	service "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/calclient"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/internal/domain/schedule"
	"github.com/okian/drcal/internal/integration"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2030, time.March, 6, 14, 37, 12, 0, time.Local)

func clock() time.Time { return fixedNow }

type harness struct {
	calendar *httptest.Server
	svc      *service.Service
	mux      *http.ServeMux
}

func newHarness() *harness {
	svc := service.New(service.WithClock(clock))
	calMux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), calMux)
	cal := httptest.NewServer(calMux)

	srv, err := integration.NewServer(calclient.New(cal.URL), integration.WithClock(clock))
	So(err, ShouldBeNil)
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return &harness{calendar: cal, svc: svc, mux: mux}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func manualFields(title string, start time.Time) model.Fields {
	return model.Fields{
		model.FieldTitle:       title,
		model.FieldStart:       start.Format(model.TimeLayout),
		model.FieldEnd:         start.Add(2 * time.Hour).Format(model.TimeLayout),
		model.FieldDescription: "Integration scheduled DR exercise",
	}
}

func TestDashboard(t *testing.T) {
	Convey("Given a dashboard backed by a calendar", t, func() {
		h := newHarness()
		defer h.calendar.Close()
		ctx := context.Background()

		Convey("When the calendar is empty", func() {
			rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "No DR tests scheduled")
		})

		Convey("When the calendar holds future tests", func() {
			_, err := h.svc.Create(ctx, model.KindManual, manualFields("Later failover", fixedNow.Add(10*24*time.Hour)))
			So(err, ShouldBeNil)
			_, err = h.svc.Create(ctx, model.KindManual, manualFields("Sooner failover", fixedNow.Add(3*24*time.Hour+time.Hour)))
			So(err, ShouldBeNil)

			body := h.do(httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

			Convey("Then they are listed soonest first with days left", func() {
				So(body, ShouldContainSubstring, "Upcoming DR Tests")
				So(strings.Index(body, "Sooner failover"), ShouldBeLessThan, strings.Index(body, "Later failover"))
				So(body, ShouldContainSubstring, "3 days")
				So(body, ShouldContainSubstring, " at ")
			})
		})

		Convey("When the calendar is down", func() {
			h.calendar.Close()
			rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then an error banner is shown", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, integration.MsgUnreachable)
			})
		})
	})
}

func TestScheduleForm(t *testing.T) {
	Convey("Given the dashboard", t, func() {
		h := newHarness()
		defer h.calendar.Close()

		Convey("When opening /schedule without embed", func() {
			rec := h.do(httptest.NewRequest(http.MethodGet, "/schedule", nil))

			Convey("Then the browser goes to the calendar form", func() {
				So(rec.Code, ShouldEqual, http.StatusFound)
				So(rec.Header().Get("Location"), ShouldEqual, h.calendar.URL+"/schedule_event")
			})
		})

		Convey("When opening the embedded form", func() {
			rec := h.do(httptest.NewRequest(http.MethodGet, "/schedule?embed=TRUE", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `action="/schedule"`)
		})

		Convey("When posting a valid form", func() {
			form := url.Values{}
			for k, v := range manualFields("Posted failover", fixedNow.Add(5*24*time.Hour)) {
				form.Set(k, v)
			}
			req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := h.do(req)

			So(rec.Code, ShouldEqual, http.StatusSeeOther)
			events := h.svc.List(context.Background())
			So(events, ShouldHaveLength, 1)
			So(events[0].Kind, ShouldEqual, model.KindManual)
		})

		Convey("When posting an invalid form", func() {
			form := url.Values{"title": {"AB"}}
			req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := h.do(req)

			Convey("Then the calendar's messages are shown with the typed values", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, schedule.MsgTitleTooShort)
				So(rec.Body.String(), ShouldContainSubstring, `value="AB"`)
			})
		})
	})
}

func TestAPIProxy(t *testing.T) {
	Convey("Given the dashboard JSON API", t, func() {
		h := newHarness()
		defer h.calendar.Close()

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/schedule", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			return h.do(req)
		}

		Convey("When scheduling an auto test", func() {
			rec := post(`{"schedule_type":"auto"}`)

			Convey("Then the calendar stores it and the event is echoed", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var out api.EventResponse
				So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
				So(out.Success, ShouldBeTrue)
				So(out.Event.Kind, ShouldEqual, model.KindAuto)
			})

			Convey("And the events proxy lists it", func() {
				rec := h.do(httptest.NewRequest(http.MethodGet, "/api/events", nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
				var out map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
				So(out["total"], ShouldEqual, float64(1))
			})
		})

		Convey("When the body is empty", func() {
			rec := post("")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, api.MsgNoJSON)
		})

		Convey("When the calendar rejects the submission", func() {
			rec := post(`{"title":"AB"}`)

			Convey("Then its status and messages pass through", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				var out map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
				So(out["success"], ShouldEqual, false)
				So(out["errors"], ShouldContain, schedule.MsgTitleTooShort)
			})
		})

		Convey("When the calendar is down", func() {
			h.calendar.Close()
			rec := h.do(httptest.NewRequest(http.MethodGet, "/api/events", nil))
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(rec.Body.String(), ShouldContainSubstring, integration.MsgUnreachable)
		})
	})
}
