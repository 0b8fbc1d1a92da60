// Package apperr defines the error taxonomy shared by services and transports.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindNotAuthenticated
	KindPermissionDenied
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

// Sentinels for errors.Is; any *Error of the same Kind matches.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrUnavailable      = &Error{Kind: KindUnavailable}
)

type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " [%s: %s]", k, strings.Join(e.Fields[k], "; "))
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Fields == nil && t.Err == nil
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// FieldError is a validation failure tied to one input field.
func FieldError(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: map[string][]string{field: {msg}}}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func NotAuthenticated() *Error {
	return &Error{Kind: KindNotAuthenticated, Message: "authentication credentials were not provided"}
}

func PermissionDenied() *Error {
	return &Error{Kind: KindPermissionDenied, Message: "you do not have permission to perform this action"}
}

// Conflict reports a uniqueness clash; field names the offending input, if any.
func Conflict(field, msg string, err error) *Error {
	e := &Error{Kind: KindConflict, Message: msg, Err: err}
	if field != "" {
		e.Fields = map[string][]string{field: {msg}}
	}
	return e
}

func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
