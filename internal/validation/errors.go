// Package validation parses workflow drafts and checks them for structural,
// security, and referential problems.
package validation

import "fmt"

// ParseError means model output could not be turned into a draft.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unparseable workflow: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("unparseable workflow: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
