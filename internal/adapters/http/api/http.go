// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/drcal/internal/adapters/ics"
	service "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/domain/dedupe"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	List(ctx context.Context) []model.Event
	Get(ctx context.Context, id int64) (model.Event, error)
	Create(ctx context.Context, kind model.Kind, fields model.Fields) (model.Event, error)
	AutoSchedule(ctx context.Context) (model.Event, error)
	Update(ctx context.Context, id int64, fields model.Fields) (model.Event, error)
	Delete(ctx context.Context, id int64) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
	feedHandler   *FeedHandler
	importHandler *ImportHandler
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	logger   logger.Logger
	encoder  *ics.Encoder
	imported dedupe.Recorder
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEncoder sets the iCalendar encoder for /events.ics.
func WithEncoder(e *ics.Encoder) Option {
	return func(c *serverConfig) {
		if e != nil {
			c.encoder = e
		}
	}
}

// WithImportRecorder sets where imported iCalendar UIDs are remembered.
func WithImportRecorder(r dedupe.Recorder) Option {
	return func(c *serverConfig) {
		if r != nil {
			c.imported = r
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{logger: logger.NewNop(), encoder: ics.NewEncoder()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		eventsHandler: NewEventsHandler(deps, cfg.logger),
		feedHandler:   NewFeedHandler(deps, cfg.encoder),
		importHandler: NewImportHandler(deps, cfg.imported, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /events", MetricsMiddleware(s.feedHandler.HandleFeed, "events_feed"))
	mux.HandleFunc("GET /events.ics", MetricsMiddleware(s.feedHandler.HandleICS, "events_ics"))

	mux.HandleFunc("GET /api/events", MetricsMiddleware(s.eventsHandler.HandleList, "api_events"))
	mux.HandleFunc("POST /api/events", MetricsMiddleware(s.eventsHandler.HandleCreate, "api_events"))
	mux.HandleFunc("POST /api/events/import", MetricsMiddleware(s.importHandler.HandleImport, "api_events_import"))
	mux.HandleFunc("GET /api/events/{id}", MetricsMiddleware(s.eventsHandler.HandleGet, "api_event"))
	mux.HandleFunc("PUT /api/events/{id}", MetricsMiddleware(s.eventsHandler.HandleUpdate, "api_event"))
	mux.HandleFunc("POST /api/events/{id}", MetricsMiddleware(s.eventsHandler.HandleUpdate, "api_event"))
	mux.HandleFunc("DELETE /api/events/{id}", MetricsMiddleware(s.eventsHandler.HandleDelete, "api_event"))
}

// Response envelopes.

type listResponse struct {
	Success bool          `json:"success"`
	Events  []model.Event `json:"events"`
	Total   int           `json:"total"`
}

// EventResponse is the envelope for single-event results.
type EventResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Event   *model.Event `json:"event,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type validationResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorResponse{Success: false, Error: msg})
}

// WriteServiceError maps service errors onto the JSON envelope.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		WriteJSON(w, http.StatusBadRequest, validationResponse{Success: false, Errors: service.Messages(err)})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, ErrBadID):
		writeError(w, http.StatusNotFound, MsgNotFound)
	case errors.Is(err, service.ErrNoData), errors.Is(err, ErrNoData):
		writeError(w, http.StatusBadRequest, MsgNoJSON)
	default:
		writeError(w, http.StatusInternalServerError, MsgInternal)
	}
}

// ParseID reads the {id} path value. Non-numeric ids report ErrBadID.
func ParseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadID
	}
	return id, nil
}

// DecodeFields reads a JSON object body. String values become fields;
// anything else counts as absent. An empty, malformed or non-object body
// reports ErrNoData.
func DecodeFields(w http.ResponseWriter, r *http.Request) (model.Fields, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, ErrNoData
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return nil, ErrNoData
	}
	fields := make(model.Fields, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return fields, nil
}
