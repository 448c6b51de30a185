package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/echolater/internal/common"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message}})
}

// errorStatus maps a service error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorUnsupportedFormat):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, common.ErrorFileTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, common.ErrTranscriptionFailed), errors.Is(err, common.ErrTranscriptionUnavailable):
		return http.StatusBadGateway, "TRANSCRIPTION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeError renders err in the failure envelope. Internal errors are logged
// and replaced by a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}
	writeFailure(w, status, code, message)
}
