package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"save-the-fridge/internal/middleware"
	"save-the-fridge/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	correlationID := middleware.CorrelationIDFrom(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).
		Str("error", message).
		Int("status", status).
		Str("correlation_id", correlationID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: correlationID,
	})
}

// writeServiceError maps a service error onto an HTTP response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("unexpected service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}
	writeError(w, r, statusFor(de.Code), de.Code, de.Message, logger)
}

// unsavedWarning is sent with a successful response whose change is applied
// in memory but could not be written to storage. Retrying would apply it twice.
const unsavedWarning = `199 - "change applied but not saved to storage"`

// warnUnsaved sets the unsaved warning when err is a persist failure and
// reports whether the request should still succeed.
func warnUnsaved(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) bool {
	if !errors.Is(err, model.ErrPersistFailed) {
		return false
	}
	logger.Warn().
		Err(err).
		Str("correlation_id", middleware.CorrelationIDFrom(r.Context())).
		Msg("change applied but not saved")
	w.Header().Set("Warning", unsavedWarning)
	return true
}

// statusFor returns the HTTP status for a domain error code.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeScanInProgress, model.ErrCodeDeviceBusy:
		return http.StatusConflict
	case model.ErrCodeConfirmationRequired:
		return http.StatusPreconditionRequired
	case model.ErrCodeLookupUnavailable, model.ErrCodeDeviceAbsent:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

// productID parses the {id} path parameter.
func productID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewDomainError(model.ErrCodeValidationFailed, "invalid product ID")
	}
	return id, nil
}
