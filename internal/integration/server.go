// Package integration is a small DR test dashboard that uses the calendar
// only through its JSON API.
package integration

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/okian/drcal/internal/adapters/http/api"
	"github.com/okian/drcal/internal/calclient"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageDashboard = "dashboard.html"
	pageSchedule  = "schedule_form.html"
	recentLimit   = 5
)

var funcs = template.FuncMap{
	"pretty": func(ts model.Timestamp) string { return strings.Replace(ts.String(), "T", " at ", 1) },
}

// Server serves the dashboard and its JSON proxies.
type Server struct {
	client *calclient.Client
	pages  *template.Template
	logger logger.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used to split upcoming and past tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer builds the dashboard on top of client.
func NewServer(client *calclient.Client, opts ...Option) (*Server, error) {
	pages, err := template.New("integration").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	s := &Server{client: client, pages: pages, logger: logger.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register attaches the dashboard routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", api.MetricsMiddleware(s.HandleDashboard, "integration_dashboard"))
	mux.HandleFunc("GET /schedule", api.MetricsMiddleware(s.HandleScheduleForm, "integration_schedule"))
	mux.HandleFunc("POST /schedule", api.MetricsMiddleware(s.HandleSchedule, "integration_schedule"))
	mux.HandleFunc("POST /api/schedule", api.MetricsMiddleware(s.HandleAPISchedule, "integration_api_schedule"))
	mux.HandleFunc("GET /api/events", api.MetricsMiddleware(s.HandleAPIEvents, "integration_api_events"))
}

type dashboardData struct {
	Error       string
	CalendarURL string
	Upcoming    []calclient.Upcoming
	Past        []model.Event
}

type scheduleData struct {
	Errors []string
	Form   model.Fields
}

// HandleDashboard handles GET /.
func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{CalendarURL: s.client.BaseURL()}
	events, err := s.client.ListEvents(r.Context())
	if err != nil {
		s.logger.Warn(r.Context(), "calendar list failed", logger.Error(err))
		data.Error = errorMessage(err)
	} else {
		data.Upcoming, data.Past = calclient.Split(events, s.now())
		if len(data.Past) > recentLimit {
			data.Past = data.Past[:recentLimit]
		}
	}
	s.render(w, r, http.StatusOK, pageDashboard, data)
}

// HandleScheduleForm handles GET /schedule. Without ?embed=true the
// browser is sent to the calendar's own form.
func (s *Server) HandleScheduleForm(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("embed"), "true") {
		s.render(w, r, http.StatusOK, pageSchedule, scheduleData{Form: model.Fields{}})
		return
	}
	http.Redirect(w, r, s.client.BaseURL()+"/schedule_event", http.StatusFound)
}

// HandleSchedule handles POST /schedule.
func (s *Server) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, pageSchedule, scheduleData{Errors: []string{api.MsgNoJSON}, Form: model.Fields{}})
		return
	}
	fields := model.Fields{model.FieldScheduleType: string(model.KindManual)}
	for _, key := range []string{model.FieldScheduleType, model.FieldTitle, model.FieldStart, model.FieldEnd, model.FieldDescription} {
		if v := r.PostForm.Get(key); v != "" {
			fields[key] = v
		}
	}

	if _, err := s.client.CreateEvent(r.Context(), fields); err != nil {
		msgs := calclient.ValidationErrors(err)
		if msgs == nil {
			msgs = []string{errorMessage(err)}
		}
		s.render(w, r, http.StatusBadRequest, pageSchedule, scheduleData{Errors: msgs, Form: fields})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleAPISchedule handles POST /api/schedule for other systems.
func (s *Server) HandleAPISchedule(w http.ResponseWriter, r *http.Request) {
	fields, err := api.DecodeFields(w, r)
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	ev, err := s.client.CreateEvent(r.Context(), fields)
	if err != nil {
		s.writeClientError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, api.EventResponse{Success: true, Message: api.MsgCreated, Event: &ev})
}

type eventsResponse struct {
	Success bool          `json:"success"`
	Events  []model.Event `json:"events"`
	Total   int           `json:"total"`
}

// HandleAPIEvents handles GET /api/events by proxying the calendar list.
func (s *Server) HandleAPIEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.client.ListEvents(r.Context())
	if err != nil {
		s.writeClientError(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	api.WriteJSON(w, http.StatusOK, eventsResponse{Success: true, Events: events, Total: len(events)})
}

type clientErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func (s *Server) writeClientError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *calclient.APIError
	if errors.As(err, &apiErr) {
		resp := clientErrorResponse{Errors: apiErr.Errors}
		if len(apiErr.Errors) == 0 {
			resp.Error = apiErr.Message
		}
		api.WriteJSON(w, apiErr.Status, resp)
		return
	}
	s.logger.Error(r.Context(), "calendar request failed", logger.Error(err))
	api.WriteJSON(w, http.StatusInternalServerError, clientErrorResponse{Error: errorMessage(err)})
}

func errorMessage(err error) string {
	var apiErr *calclient.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, calclient.ErrUnavailable):
		return MsgUnreachable
	default:
		return MsgUnknown
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, page, data); err != nil {
		s.logger.Error(r.Context(), "render failed", logger.String("page", page), logger.Error(err))
		http.Error(w, api.MsgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
