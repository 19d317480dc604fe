package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/profile-engine/internal/profile"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound    *profile.ErrNotFound
		validation  *profile.ErrValidation
		conflict    *profile.ErrTransactionConflict
		unavailable *profile.ErrStorageUnavailable
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and JSON body. Internal details of 5xx
// errors are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: err.Error()}

	var validation *profile.ErrValidation
	if errors.As(err, &validation) {
		body = errorBody{Error: validation.Message, Field: validation.Field}
	}

	switch {
	case errors.Is(err, context.Canceled):
		s.log.Debug("request canceled", zap.String("path", r.URL.Path))
	case status == http.StatusServiceUnavailable:
		s.log.Warn("storage unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "storage temporarily unavailable"
	case status >= http.StatusInternalServerError:
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "internal server error"
	}
	s.jsonResponse(w, status, body)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, errorBody{Error: message})
}
