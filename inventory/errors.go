package inventory

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match with errors.Is(err, inventory.ErrConflict).
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvariantViolation = errors.New("invariant violation")
)

// Error is a business-rule failure: which rule (Kind), where (Op), and a message fit for users.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf is used by storage adapters to report a missing row.
func NotFoundf(op, format string, args ...any) error {
	return newError(ErrNotFound, op, format, args...)
}

// Conflictf is used by storage adapters to report unique-key violations.
func Conflictf(op, format string, args ...any) error {
	return newError(ErrConflict, op, format, args...)
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrInvalidState, "invalid_state"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrConflict, "conflict"},
	{ErrUnauthorized, "unauthorized"},
	{ErrForbidden, "forbidden"},
	{ErrInvariantViolation, "invariant_violation"},
}

// KindName returns a stable name for the error's kind, or "" for infrastructure errors.
func KindName(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// Message returns the user-facing part of a business error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
