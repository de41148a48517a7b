package site_test

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
	"github.com/okian/drcal/internal/adapters/http/site"
	service "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2030, time.March, 6, 14, 37, 12, 0, time.Local)

func newSite() (*http.ServeMux, *service.Service) {
	svc := service.New(service.WithClock(func() time.Time { return fixedNow }))
	mux := http.NewServeMux()
	So(site.Register(context.Background(), mux, svc, nil), ShouldBeNil)
	return mux, svc
}

func validForm(title string) url.Values {
	start := fixedNow.Add(72 * time.Hour)
	return url.Values{
		"schedule_type": {"manual"},
		"title":         {title},
		"start":         {start.Format(model.TimeLayout)},
		"end":           {start.Add(2 * time.Hour).Format(model.TimeLayout)},
		"description":   {"Failover drill for the primary region"},
	}
}

func postForm(mux http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func get(mux http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSite_Pages(t *testing.T) {
	Convey("Given the calendar pages", t, func() {
		mux, svc := newSite()

		Convey("When the calendar is empty", func() {
			rec := get(mux, "/")

			Convey("Then the index says so", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(rec.Body.String(), ShouldContainSubstring, "No DR tests scheduled yet.")
			})
		})

		Convey("When an event exists", func() {
			_, err := svc.AutoSchedule(context.Background())
			So(err, ShouldBeNil)
			body := get(mux, "/").Body.String()

			Convey("Then the index lists it with an edit link", func() {
				So(body, ShouldContainSubstring, "Auto Scheduled DR Test")
				So(body, ShouldContainSubstring, `href="/edit_event/1"`)
				So(body, ShouldContainSubstring, "2030-04-24T09:00")
			})
		})

		Convey("When opening the scheduling form", func() {
			for _, path := range []string{"/schedule_event", "/add_event"} {
				rec := get(mux, path)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `action="/add_event"`)
			}
		})

		Convey("When requesting an unknown page", func() {
			So(get(mux, "/nowhere").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When requesting the stylesheet", func() {
			rec := get(mux, "/static/style.css")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
		})
	})
}

func TestSite_AddEvent(t *testing.T) {
	Convey("Given the scheduling form", t, func() {
		mux, svc := newSite()
		ctx := context.Background()

		Convey("When a valid manual form is posted", func() {
			rec := postForm(mux, "/add_event", validForm("Region failover"))

			Convey("Then the browser is sent back to the calendar", func() {
				So(rec.Code, ShouldEqual, http.StatusSeeOther)
				So(rec.Header().Get("Location"), ShouldEqual, "/")
				So(svc.List(ctx), ShouldHaveLength, 1)
				So(svc.List(ctx)[0].Kind, ShouldEqual, model.KindManual)
			})
		})

		Convey("When the form is invalid", func() {
			form := validForm("AB")
			rec := postForm(mux, "/add_event", form)

			Convey("Then the form comes back with errors and the typed values", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, schedule.MsgTitleTooShort)
				So(rec.Body.String(), ShouldContainSubstring, `value="`+form.Get("start")+`"`)
				So(svc.List(ctx), ShouldBeEmpty)
			})
		})

		Convey("When the auto option is chosen", func() {
			rec := postForm(mux, "/add_event", url.Values{"schedule_type": {"auto"}})

			Convey("Then an auto event is stored without field checks", func() {
				So(rec.Code, ShouldEqual, http.StatusSeeOther)
				events := svc.List(ctx)
				So(events, ShouldHaveLength, 1)
				So(events[0].Kind, ShouldEqual, model.KindAuto)
			})
		})

		Convey("When a JSON body is posted", func() {
			b, _ := json.Marshal(map[string]string{"schedule_type": "auto"})
			req := httptest.NewRequest(http.MethodPost, "/add_event", strings.NewReader(string(b)))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the JSON envelope is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var out api.EventResponse
				So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
				So(out.Success, ShouldBeTrue)
				So(out.Message, ShouldEqual, api.MsgScheduled)
				So(out.Event.ID, ShouldEqual, int64(1))
			})
		})

		Convey("When an invalid form asks for JSON", func() {
			rec := postForm(mux, "/add_event?api=true", validForm("AB"))

			Convey("Then the errors come back as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				var out map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
				So(out["success"], ShouldEqual, false)
				So(out["errors"], ShouldResemble, []any{schedule.MsgTitleTooShort})
			})
		})

		Convey("When an empty JSON body is posted", func() {
			req := httptest.NewRequest(http.MethodPost, "/add_event", strings.NewReader(""))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, api.MsgNoJSON)
		})
	})
}

func TestSite_AutoSchedule(t *testing.T) {
	Convey("Given the calendar", t, func() {
		mux, svc := newSite()

		Convey("When the auto button is pressed twice", func() {
			first := postForm(mux, "/auto_schedule", nil)
			second := postForm(mux, "/auto_schedule", nil)

			Convey("Then two auto events are stored", func() {
				So(first.Code, ShouldEqual, http.StatusSeeOther)
				So(second.Code, ShouldEqual, http.StatusSeeOther)
				So(svc.List(context.Background()), ShouldHaveLength, 2)
			})
		})

		Convey("When auto_schedule is fetched with GET", func() {
			So(get(mux, "/auto_schedule").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSite_EditEvent(t *testing.T) {
	Convey("Given a stored event", t, func() {
		mux, svc := newSite()
		ctx := context.Background()
		So(postForm(mux, "/add_event", validForm("Region failover")).Code, ShouldEqual, http.StatusSeeOther)

		Convey("When opening its edit page", func() {
			rec := get(mux, "/edit_event/1")

			Convey("Then the form is prefilled", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `value="Region failover"`)
			})
		})

		Convey("When opening an unknown or malformed id", func() {
			So(get(mux, "/edit_event/42").Code, ShouldEqual, http.StatusNotFound)
			So(get(mux, "/edit_event/abc").Code, ShouldEqual, http.StatusNotFound)
			So(postForm(mux, "/edit_event/42", validForm("Ghost event")).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When only the title is changed", func() {
			rec := postForm(mux, "/edit_event/1", url.Values{"title": {"Renamed failover"}})

			Convey("Then the event is updated and the rest kept", func() {
				So(rec.Code, ShouldEqual, http.StatusSeeOther)
				ev, err := svc.Get(ctx, 1)
				So(err, ShouldBeNil)
				So(ev.Title, ShouldEqual, "Renamed failover")
				So(ev.Description, ShouldEqual, "Failover drill for the primary region")
			})
		})

		Convey("When the edit is invalid", func() {
			rec := postForm(mux, "/edit_event/1", url.Values{"title": {"AB"}})

			Convey("Then the form is shown again and nothing changes", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, schedule.MsgTitleTooShort)
				So(rec.Body.String(), ShouldContainSubstring, `value="AB"`)
				ev, err := svc.Get(ctx, 1)
				So(err, ShouldBeNil)
				So(ev.Title, ShouldEqual, "Region failover")
			})
		})

		Convey("When nothing is submitted", func() {
			rec := postForm(mux, "/edit_event/1", url.Values{})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRegister_NilMux(t *testing.T) {
	Convey("Registering on a nil mux panics", t, func() {
		So(func() { _ = site.Register(context.Background(), nil, nil, nil) }, ShouldPanic)
	})
}
