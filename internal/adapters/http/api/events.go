// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
)

// EventsHandler serves the /api/events resource.
type EventsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, l logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: l}
}

// HandleList handles GET /api/events.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events := h.deps.List(r.Context())
	if events == nil {
		events = []model.Event{}
	}
	WriteJSON(w, http.StatusOK, listResponse{Success: true, Events: events, Total: len(events)})
}

// HandleCreate handles POST /api/events. schedule_type defaults to manual.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	fields, err := DecodeFields(w, r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	ev, err := h.deps.Create(r.Context(), model.ParseKind(fields.Get(model.FieldScheduleType)), fields)
	if err != nil {
		h.logger.Debug(r.Context(), "create rejected", logger.String("request_id", RequestIDFrom(r.Context())), logger.Error(err))
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, EventResponse{Success: true, Message: MsgCreated, Event: &ev})
}

// HandleGet handles GET /api/events/{id}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	ev, err := h.deps.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, EventResponse{Success: true, Event: &ev})
}

// HandleUpdate handles PUT and POST /api/events/{id}. Unknown ids are
// reported before the body is looked at.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if _, err := h.deps.Get(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}

	fields, err := DecodeFields(w, r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	ev, err := h.deps.Update(r.Context(), id, fields)
	if err != nil {
		h.logger.Debug(r.Context(), "update rejected", logger.Int64("id", id),
			logger.String("request_id", RequestIDFrom(r.Context())), logger.Error(err))
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, EventResponse{Success: true, Event: &ev})
}

// HandleDelete handles DELETE /api/events/{id}.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := h.deps.Delete(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, EventResponse{Success: true, Message: MsgDeleted})
}
