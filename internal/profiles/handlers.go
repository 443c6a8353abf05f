package profiles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mihaigidu/FitGenius/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGet handles GET /v1/profile
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, profile)
}

// HandlePut handles PUT /v1/profile
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	profile, err := h.service.Replace(r.Context(), auth.OwnerID(r.Context()), req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, profile)
}

// HandlePatch handles PATCH /v1/profile
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	var req PatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON")
		return
	}

	profile, err := h.service.Patch(r.Context(), auth.OwnerID(r.Context()), req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, profile)
}

// HandlePrompt handles GET /v1/profile/prompt
func (h *Handler) HandlePrompt(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Prompt(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendJSON(w, http.StatusOK, resp)
}

// HandleOptions handles GET /v1/profile/options
func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, Options())
}

func (h *Handler) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyName):
		h.sendError(w, http.StatusBadRequest, "empty_name", "Name cannot be empty")
	case errors.Is(err, auth.ErrInvalidEmail):
		h.sendError(w, http.StatusBadRequest, "invalid_email", "Invalid email")
	case errors.Is(err, ErrEmailTaken):
		h.sendError(w, http.StatusConflict, "email_taken", "Email already registered")
	case errors.Is(err, ErrInvalidAge),
		errors.Is(err, ErrInvalidWeight),
		errors.Is(err, ErrInvalidHeight),
		errors.Is(err, ErrInvalidTrainingDay),
		errors.Is(err, ErrInvalidCycleLength),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidPhase):
		h.sendError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		h.service.logger.Error().Err(err).Msg("profile request failed")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Failed to process profile")
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
