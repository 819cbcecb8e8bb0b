package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/workflow-generator/internal/jobs"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields []jobs.FieldError `json:"fields,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var invalid *jobs.InvalidJobError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// toErrorResponse renders err for clients. Internal errors are not echoed.
func toErrorResponse(err error) ErrorResponse {
	var invalid *jobs.InvalidJobError
	if errors.As(err, &invalid) {
		return ErrorResponse{Error: "invalid job", Fields: invalid.Fields}
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return ErrorResponse{Error: "internal server error"}
	}
	return ErrorResponse{Error: err.Error()}
}
