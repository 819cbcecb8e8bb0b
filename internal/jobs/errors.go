// Package jobs accepts generation jobs, runs them on a bounded worker pool,
// and tracks their status.
package jobs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrJobNotFound is returned when a job id is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrShuttingDown is returned for submissions after Shutdown.
	ErrShuttingDown = errors.New("job service is shutting down")
)

// FieldError is one rejected intake field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidJobError rejects a malformed intake request.
type InvalidJobError struct {
	Fields []FieldError
}

func (e *InvalidJobError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "invalid job: " + strings.Join(parts, "; ")
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("job store error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("job store error: %s", e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
