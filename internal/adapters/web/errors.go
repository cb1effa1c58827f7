package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"procurement-flow/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, errorResponse{Error: message, Code: code}, status)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, resp errorResponse, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp.RequestID = requestIDFromContext(r.Context())
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a domain error onto its HTTP status and code.
// Unexpected errors are logged and reported as 500 without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *core.ValidationError
		pe *core.PreconditionError
		ce *core.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		writeErrorResponse(w, r, errorResponse{Error: ve.Message, Code: ve.Code, Field: ve.Field}, http.StatusUnprocessableEntity)
	case errors.As(err, &pe):
		status := http.StatusUnprocessableEntity
		if pe.Code == "TOKEN_NOT_FOUND" {
			status = http.StatusNotFound
		}
		writeError(w, r, pe.Message, pe.Code, status)
	case errors.As(err, &ce):
		writeError(w, r, ce.Message, ce.Code, http.StatusConflict)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	default:
		h.logger.Error("request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
