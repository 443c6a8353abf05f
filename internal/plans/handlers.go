package plans

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mihaigidu/FitGenius/internal/auth"
	"github.com/mihaigidu/FitGenius/internal/export"
)

const workbookFilename = "fitgenius_plan.xlsx"

type Handler struct {
	controller *Controller
}

func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

// HandleGenerate handles POST /v1/plans/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.Generate(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		h.sendControllerError(w, err)
		return
	}
	h.sendJSON(w, http.StatusAccepted, view)
}

// HandleCurrent handles GET /v1/plans/current
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.Current(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		h.sendControllerError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, view)
}

// HandleClear handles DELETE /v1/plans/current
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Clear(r.Context(), auth.OwnerID(r.Context())); err != nil {
		h.sendControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToday handles GET /v1/plans/today
func (h *Handler) HandleToday(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.Today(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		h.sendControllerError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, view)
}

// HandleWorkbook handles GET /v1/plans/export.xlsx
func (h *Handler) HandleWorkbook(w http.ResponseWriter, r *http.Request) {
	_, workout, nutrition, err := h.controller.Exportable(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		h.sendControllerError(w, err)
		return
	}

	// Rendered into memory first so a failure can still answer with JSON.
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, workout, nutrition); err != nil {
		h.sendControllerError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+workbookFilename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) sendControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGenerationInProgress):
		h.sendError(w, http.StatusConflict, "generation_in_progress", "Ya se está generando un plan. Espera a que termine.")
	case errors.Is(err, ErrNoPlan):
		h.sendError(w, http.StatusNotFound, "no_plan", "Todavía no tienes un plan generado.")
	case errors.Is(err, ErrNotExportable), errors.Is(err, export.ErrNothingToExport):
		h.sendError(w, http.StatusConflict, "plan_not_exportable", "Este plan no tiene datos estructurados para exportar.")
	default:
		h.controller.logger.Error().Err(err).Msg("plans request failed")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Internal error")
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
