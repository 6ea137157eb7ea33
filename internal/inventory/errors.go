package inventory

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation.
type Kind string

// Error kinds.
const (
	KindValidation          Kind = "validation"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindInsufficientHolding Kind = "insufficient_holding"
	KindWrongSelectionCount Kind = "wrong_selection_count"
	KindUnitNotAvailable    Kind = "unit_not_available"
	KindDuplicateUnitCode   Kind = "duplicate_unit_code"
	KindUnauthorized        Kind = "unauthorized"
	KindNotFound            Kind = "not_found"
)

// Error is a business rule rejection. Any other error out of the engine is
// an infrastructure failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a rule rejection.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a rule rejection of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func notFound(what string, id int64) *Error {
	return newError(KindNotFound, "%s %d not found", what, id)
}

func forbidden(action string) *Error {
	return newError(KindUnauthorized, "not allowed to %s", action)
}
