package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance for quantity threshold comparisons.
var Epsilon = decimal.New(1, -9)

var (
	ErrNotFound     = errors.New("procurement: not found")
	ErrPrecondition = errors.New("procurement: precondition failed")
	ErrValidation   = errors.New("procurement: validation failed")
	ErrConflict     = errors.New("procurement: business rule conflict")
)

// PreconditionError blocks an operation before any state is touched
// (unconfigured approval flow, bad token, inactive material).
type PreconditionError struct {
	Code    string
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }
func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// ValidationError names the offending input field when one is known.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports that the requested transition is not allowed in the
// current state. Callers branch on Code.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return ErrConflict }

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

func precondition(code, msg string) error {
	return &PreconditionError{Code: code, Message: msg}
}

func invalid(field, code, msg string) error {
	return &ValidationError{Field: field, Code: code, Message: msg}
}

func conflict(code, msg string) error {
	return &ConflictError{Code: code, Message: msg}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
