package notes

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for the boundary layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuthorization:
		return "authorization_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a rule violation the caller can act on. Anything that is not an
// *Error is a store failure.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func authorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func notFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func conflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf returns the kind of a domain error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
