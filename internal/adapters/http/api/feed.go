package api

import (
	"net/http"

	"github.com/okian/drcal/internal/adapters/ics"
	"github.com/okian/drcal/internal/domain/model"
)

// FeedHandler serves whole-calendar feeds.
type FeedHandler struct {
	deps    Dependencies
	encoder *ics.Encoder
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps Dependencies, encoder *ics.Encoder) *FeedHandler {
	return &FeedHandler{deps: deps, encoder: encoder}
}

// HandleFeed handles GET /events with a bare JSON array.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	events := h.deps.List(r.Context())
	if events == nil {
		events = []model.Event{}
	}
	WriteJSON(w, http.StatusOK, events)
}

// HandleICS handles GET /events.ics.
func (h *FeedHandler) HandleICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="drcal.ics"`)
	_ = h.encoder.Encode(w, h.deps.List(r.Context()))
}
