package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleRegister handles POST /v1/auth/register
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /v1/auth/login
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNameRequired):
		writeErrorResponse(w, http.StatusBadRequest, "name_required", "El nombre es obligatorio")
	case errors.Is(err, ErrInvalidEmail):
		writeErrorResponse(w, http.StatusBadRequest, "invalid_email", "Introduce un correo electrónico válido")
	case errors.Is(err, ErrEmailTaken):
		writeErrorResponse(w, http.StatusConflict, "email_taken", "Ya existe una cuenta con ese correo")
	case errors.Is(err, ErrUnknownAccount):
		writeErrorResponse(w, http.StatusNotFound, "account_not_found", "No existe ninguna cuenta con ese correo")
	default:
		h.service.logger.Error().Err(err).Msg("auth request failed")
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
