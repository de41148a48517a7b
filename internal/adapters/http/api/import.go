package api

import (
	"errors"
	"net/http"

	"github.com/okian/drcal/internal/adapters/ics"
	service "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/domain/dedupe"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/pkg/logger"
	"github.com/okian/drcal/pkg/metrics"
)

// ImportHandler creates events from an uploaded iCalendar file.
type ImportHandler struct {
	deps     Dependencies
	imported dedupe.Recorder
	logger   logger.Logger
}

// NewImportHandler creates a new import handler. UIDs already imported
// through imported are skipped.
func NewImportHandler(deps Dependencies, imported dedupe.Recorder, l logger.Logger) *ImportHandler {
	if imported == nil {
		imported = dedupe.NewMemoryRecorder()
	}
	return &ImportHandler{deps: deps, imported: imported, logger: l}
}

// Rejection reports one VEVENT that failed validation.
type Rejection struct {
	UID     string   `json:"uid"`
	Summary string   `json:"summary"`
	Errors  []string `json:"errors"`
}

// ImportResponse is the body of POST /api/events/import.
type ImportResponse struct {
	Success    bool          `json:"success"`
	Created    []model.Event `json:"created"`
	Rejected   []Rejection   `json:"rejected"`
	Duplicates []string      `json:"duplicates"`
}

// HandleImport handles POST /api/events/import. Every VEVENT is submitted as
// a manual event; valid ones are stored, the rest are reported. A UID that
// was imported before is listed under duplicates and not stored again.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	subs, err := ics.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	switch {
	case errors.Is(err, ics.ErrEmptyBody):
		writeError(w, http.StatusBadRequest, MsgNoCalendar)
		return
	case err != nil:
		h.logger.Debug(r.Context(), "import parse failed", logger.Error(err))
		writeError(w, http.StatusBadRequest, MsgBadCalendar)
		return
	}

	ctx := r.Context()
	resp := ImportResponse{Success: true, Created: []model.Event{}, Rejected: []Rejection{}, Duplicates: []string{}}
	for _, sub := range subs {
		if h.imported.SeenAndRecord(ctx, sub.UID) {
			metrics.RecordICSImport("duplicate")
			resp.Duplicates = append(resp.Duplicates, sub.UID)
			continue
		}
		ev, err := h.deps.Create(ctx, model.KindManual, sub.Fields)
		if err != nil {
			h.imported.Forget(ctx, sub.UID)
			msgs := service.Messages(err)
			if msgs == nil {
				WriteServiceError(w, err)
				return
			}
			metrics.RecordICSImport("rejected")
			resp.Rejected = append(resp.Rejected, Rejection{UID: sub.UID, Summary: sub.Summary(), Errors: msgs})
			continue
		}
		metrics.RecordICSImport("created")
		resp.Created = append(resp.Created, ev)
	}

	h.logger.Info(ctx, "calendar imported",
		logger.Int("created", len(resp.Created)),
		logger.Int("rejected", len(resp.Rejected)),
		logger.Int("duplicates", len(resp.Duplicates)),
		logger.String("request_id", RequestIDFrom(r.Context())),
	)
	WriteJSON(w, http.StatusOK, resp)
}
