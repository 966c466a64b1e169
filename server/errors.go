package server

import (
	"errors"
	"net/http"

	"github.com/etnz/fsa"
	"github.com/etnz/fsa/agent"
	"github.com/go-chi/render"
)

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// apiError is an error with its HTTP status and code.
type apiError struct {
	status int
	code   string
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

func newError(status int, code string, err error) *apiError {
	return &apiError{status: status, code: code, err: err}
}

// classify maps err to its HTTP status and code.
func classify(err error) (int, string) {
	var apiErr *apiError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.status, apiErr.code
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, fsa.ErrMissingRequiredRow),
		errors.Is(err, fsa.ErrDuplicateRow),
		errors.Is(err, fsa.ErrBadLayout):
		return http.StatusUnprocessableEntity, "unprocessable_statement"
	case errors.Is(err, agent.ErrNoAPIKey):
		return http.StatusServiceUnavailable, "ai_unavailable"
	case errors.Is(err, agent.ErrAPI), errors.Is(err, agent.ErrEmptyResponse):
		return http.StatusBadGateway, "ai_error"
	case errors.Is(err, agent.ErrSessionClosed):
		return http.StatusGone, "session_closed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err as an ErrorResponse.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: code, Message: err.Error()})
}
