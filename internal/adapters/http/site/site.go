// Package site serves the HTML pages of the calendar.
package site

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"mime"
	"net/http"

	"github.com/okian/drcal/internal/adapters/http/api"
	service "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
)

// Dependencies are the calendar operations the pages use.
type Dependencies interface {
	List(ctx context.Context) []model.Event
	Get(ctx context.Context, id int64) (model.Event, error)
	Create(ctx context.Context, kind model.Kind, fields model.Fields) (model.Event, error)
	AutoSchedule(ctx context.Context) (model.Event, error)
	Update(ctx context.Context, id int64, fields model.Fields) (model.Event, error)
}

// Handler renders and processes the calendar pages.
type Handler struct {
	deps   Dependencies
	pages  map[string]*template.Template
	logger logger.Logger
}

// NewHandler parses the embedded templates.
func NewHandler(deps Dependencies, l logger.Logger) (*Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{deps: deps, pages: pages, logger: l}, nil
}

// Register attaches the page routes to mux.
func Register(ctx context.Context, mux *http.ServeMux, deps Dependencies, l logger.Logger) error {
	if mux == nil {
		panic("mux is nil")
	}
	h, err := NewHandler(deps, l)
	if err != nil {
		return err
	}
	h.Register(ctx, mux)
	return nil
}

// Register attaches the page routes to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", api.MetricsMiddleware(h.HandleIndex, "page_index"))
	mux.HandleFunc("GET /schedule_event", api.MetricsMiddleware(h.HandleScheduleForm, "page_schedule"))
	mux.HandleFunc("GET /add_event", api.MetricsMiddleware(h.HandleScheduleForm, "page_add_event"))
	mux.HandleFunc("POST /add_event", api.MetricsMiddleware(h.HandleAddEvent, "page_add_event"))
	mux.HandleFunc("POST /auto_schedule", api.MetricsMiddleware(h.HandleAutoSchedule, "page_auto_schedule"))
	mux.HandleFunc("GET /edit_event/{id}", api.MetricsMiddleware(h.HandleEditForm, "page_edit_event"))
	mux.HandleFunc("POST /edit_event/{id}", api.MetricsMiddleware(h.HandleEditEvent, "page_edit_event"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(StaticFS())))
}

type indexData struct {
	Events []model.Event
}

type formData struct {
	Errors []string
	Form   model.Fields
}

type editData struct {
	Event  model.Event
	Errors []string
	Form   model.Fields
}

// HandleIndex handles GET /.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageIndex, indexData{Events: h.deps.List(r.Context())})
}

// HandleScheduleForm handles GET /schedule_event and GET /add_event.
func (h *Handler) HandleScheduleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageSchedule, formData{Form: model.Fields{}})
}

// HandleAddEvent handles POST /add_event. JSON callers (Content-Type
// application/json or ?api=true) get the API envelope; browsers get a
// redirect or the form again with errors.
func (h *Handler) HandleAddEvent(w http.ResponseWriter, r *http.Request) {
	asJSON := wantsJSON(r)

	var fields model.Fields
	if isJSONBody(r) {
		f, err := api.DecodeFields(w, r)
		if err != nil {
			api.WriteServiceError(w, err)
			return
		}
		fields = f
	} else {
		f, err := formFields(r)
		if err != nil {
			h.renderFormError(w, r, asJSON, model.Fields{}, []string{api.MsgNoJSON})
			return
		}
		fields = f
	}

	ev, err := h.deps.Create(r.Context(), model.ParseKind(fields.Get(model.FieldScheduleType)), fields)
	if err != nil {
		if msgs := service.Messages(err); msgs != nil {
			h.renderFormError(w, r, asJSON, fields, msgs)
			return
		}
		h.fail(w, r, err)
		return
	}

	if asJSON {
		api.WriteJSON(w, http.StatusCreated, api.EventResponse{Success: true, Message: api.MsgScheduled, Event: &ev})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, asJSON bool, fields model.Fields, msgs []string) {
	if asJSON {
		api.WriteServiceError(w, &service.ValidationError{Messages: msgs})
		return
	}
	h.render(w, r, http.StatusBadRequest, pageSchedule, formData{Errors: msgs, Form: fields})
}

// HandleAutoSchedule handles POST /auto_schedule.
func (h *Handler) HandleAutoSchedule(w http.ResponseWriter, r *http.Request) {
	if _, err := h.deps.AutoSchedule(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleEditForm handles GET /edit_event/{id}.
func (h *Handler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, pageEdit, editData{Event: ev, Form: ev.Fields()})
}

// HandleEditEvent handles POST /edit_event/{id}. The merged record is fully
// re-validated; errors re-render the form with the submitted values.
func (h *Handler) HandleEditEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.lookup(w, r)
	if !ok {
		return
	}

	fields, err := formFields(r)
	if err != nil {
		fields = model.Fields{}
	}
	if _, err := h.deps.Update(r.Context(), ev.ID, fields); err != nil {
		var msgs []string
		switch {
		case errors.Is(err, service.ErrNoData):
			msgs = []string{api.MsgNoJSON}
		case service.Messages(err) != nil:
			msgs = service.Messages(err)
		case errors.Is(err, service.ErrNotFound):
			http.NotFound(w, r)
			return
		default:
			h.fail(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, pageEdit, editData{Event: ev, Errors: msgs, Form: overlay(ev, fields)})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// overlay lays submitted values on the stored ones for redisplay.
func overlay(ev model.Event, fields model.Fields) model.Fields {
	out := ev.Fields()
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	id, err := api.ParseID(r)
	if err != nil {
		http.NotFound(w, r)
		return model.Event{}, false
	}
	ev, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.NotFound(w, r)
			return model.Event{}, false
		}
		h.fail(w, r, err)
		return model.Event{}, false
	}
	return ev, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.fail(w, r, errors.Join(ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "page failed",
		logger.String("path", r.URL.Path),
		logger.String("request_id", api.RequestIDFrom(r.Context())),
		logger.Error(err))
	http.Error(w, api.MsgInternal, http.StatusInternalServerError)
}

func formFields(r *http.Request) (model.Fields, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := model.Fields{}
	for _, key := range []string{model.FieldTitle, model.FieldStart, model.FieldEnd, model.FieldDescription, model.FieldScheduleType} {
		if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
			fields[key] = vs[0]
		}
	}
	return fields, nil
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func wantsJSON(r *http.Request) bool {
	return isJSONBody(r) || r.URL.Query().Get("api") == "true"
}
