package exports

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mihaigidu/FitGenius/internal/auth"
	"github.com/mihaigidu/FitGenius/internal/export"
	"github.com/mihaigidu/FitGenius/internal/plans"
)

// Handlers handles HTTP requests for stored exports
type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleCreate handles POST /v1/exports
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerID(r.Context())

	exp, err := h.service.Create(r.Context(), owner)
	if err != nil {
		switch {
		case errors.Is(err, plans.ErrNoPlan):
			writeError(w, http.StatusNotFound, "no_plan", "Todavía no tienes un plan generado.")
		case errors.Is(err, plans.ErrGenerationInProgress):
			writeError(w, http.StatusConflict, "generation_in_progress", "Ya se está generando un plan. Espera a que termine.")
		case errors.Is(err, plans.ErrNotExportable), errors.Is(err, export.ErrNothingToExport):
			writeError(w, http.StatusConflict, "plan_not_exportable", "Este plan no tiene datos estructurados para exportar.")
		case errors.Is(err, ErrLimitReached):
			writeError(w, http.StatusConflict, "export_limit_reached", fmt.Sprintf("Maximum of %d stored exports reached", h.service.maxPerUser))
		default:
			h.service.logger.Error().Err(err).Str("owner", owner).Msg("create export failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create export")
		}
		return
	}

	dto, err := h.toDTO(r, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto)
}

// HandleList handles GET /v1/exports
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	list, err := h.service.List(r.Context(), auth.OwnerID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list exports")
		return
	}

	dtos := make([]ExportDTO, 0, len(list))
	for i := range list {
		dto, err := h.toDTO(r, &list[i])
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
			return
		}
		dtos = append(dtos, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExportsResponse{Exports: dtos})
}

// HandleDownload handles GET /v1/exports/{id}/download
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	exp, err := h.service.Get(r.Context(), auth.OwnerID(r.Context()), id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	if h.service.LocalMode() || exp.ObjectKey == nil {
		filename := fmt.Sprintf("fitgenius_%s.%s", exp.CreatedAt.Format("20060102"), export.Extension)
		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
		w.Write(exp.Data)
		return
	}

	url, err := h.service.DownloadURL(r.Context(), exp, getBaseURL(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleDelete handles DELETE /v1/exports/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), auth.OwnerID(r.Context()), id); err != nil {
		h.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) toDTO(r *http.Request, exp *Export) (ExportDTO, error) {
	url, err := h.service.DownloadURL(r.Context(), exp, getBaseURL(r))
	if err != nil {
		return ExportDTO{}, err
	}
	return ExportDTO{
		ID:          exp.ID,
		PlanID:      exp.PlanID,
		Format:      exp.Format,
		DownloadURL: url,
		SizeBytes:   exp.SizeBytes,
		Status:      exp.Status,
		CreatedAt:   exp.CreatedAt,
		ExpiresAt:   h.service.ExpiresAt(exp),
	}, nil
}

func (h *Handlers) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrExportNotFound) {
		writeError(w, http.StatusNotFound, "export_not_found", "Export not found")
		return
	}
	h.service.logger.Error().Err(err).Msg("export lookup failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "Internal error")
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid export ID")
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
