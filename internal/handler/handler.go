package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"food-market/internal/middleware"
	"food-market/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error body carrying the request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details []model.FieldError) {
	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		Details:       details,
		CorrelationID: middleware.CorrelationIDFromContext(r.Context()),
	})
}

// writeDomainError maps service errors onto HTTP statuses. Anything that is not
// a domain error is logged and reported as an internal error.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("correlation_id", middleware.CorrelationIDFromContext(r.Context())).
			Msg("handler error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", nil)
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidJSON:
		status = http.StatusBadRequest
	case model.ErrCodeNotFound:
		status = http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodeConflict:
		status = http.StatusConflict
	case model.ErrCodeUnauthorised:
		status = http.StatusUnauthorized
	case model.ErrCodeForbidden:
		status = http.StatusForbidden
	}

	logger.Debug().Str("code", domainErr.Code).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	writeError(w, r, status, domainErr.Code, domainErr.Message, domainErr.Details)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "request body is not valid JSON")
	}
	return nil
}
