package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"property-market-backend/internal/middleware"
	"property-market-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// respondServiceError maps a service error to a status code.
// notFound is the message used for a missing entity.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		respondError(w, validation.Message, http.StatusBadRequest)
	case errors.Is(err, services.ErrValidation):
		respondError(w, "Invalid request", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, "You do not have permission to perform this action", http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, notFound, http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		respondError(w, "Email already registered", http.StatusConflict)
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("user_id", middleware.GetUserID(r.Context())).
			Msg("Request failed")
		respondError(w, "Internal server error", http.StatusInternalServerError)
	}
}
