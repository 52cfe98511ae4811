// Package apperr is the error taxonomy shared by services and the HTTP layer.
//
// Services return *apperr.Error values (or wrap them with fmt.Errorf %w);
// the transport maps the Kind to a status code with HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error for the caller.
type Kind uint8

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Validation
	InvalidState
	InvalidTransition
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation_failed"
	case InvalidState:
		return "invalid_state"
	case InvalidTransition:
		return "invalid_transition"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Op      string              // operation that failed, e.g. "cart.add_item"
	Message string              // safe to show to the caller
	Fields  map[string][]string // field violations for Validation
	Err     error               // underlying cause, never shown to the caller
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		b.WriteString(strings.Join(keys, ","))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated   = &Error{Kind: Unauthenticated}
	ErrForbidden         = &Error{Kind: Forbidden}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrValidation        = &Error{Kind: Validation}
	ErrInvalidState      = &Error{Kind: InvalidState}
	ErrInvalidTransition = &Error{Kind: InvalidTransition}
	ErrConflict          = &Error{Kind: Conflict}
	ErrInternal          = &Error{Kind: Internal}
)

func E(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(op, msg string) *Error {
	return &Error{Kind: Unauthenticated, Op: op, Message: msg}
}

func Denied(op, msg string) *Error {
	return &Error{Kind: Forbidden, Op: op, Message: msg}
}

func Missing(op, what string) *Error {
	return &Error{Kind: NotFound, Op: op, Message: what + " not found"}
}

func State(op, msg string) *Error {
	return &Error{Kind: InvalidState, Op: op, Message: msg}
}

func Transition(op, msg string) *Error {
	return &Error{Kind: InvalidTransition, Op: op, Message: msg}
}

func Duplicate(op, msg string) *Error {
	return &Error{Kind: Conflict, Op: op, Message: msg}
}

// Invalid builds a Validation error carrying every field violation.
func Invalid(op string, fields map[string][]string) *Error {
	return &Error{Kind: Validation, Op: op, Message: "Validation failed", Fields: fields}
}

// InvalidField is Invalid for a single field.
func InvalidField(op, field, msg string) *Error {
	return Invalid(op, map[string][]string{field: {msg}})
}

// Wrap marks err as Internal under op. Already-classified errors pass through.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: Internal, Op: op, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// HTTPStatus maps a Kind to its response status code.
func HTTPStatus(k Kind) int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Validation, InvalidState, InvalidTransition:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is what the caller may see. Internal causes are never exposed.
func PublicMessage(err error) string {
	ae, ok := As(err)
	if !ok || ae.Kind == Internal {
		return "Internal Server Error"
	}
	if ae.Message != "" {
		return ae.Message
	}
	return ae.Kind.String()
}
