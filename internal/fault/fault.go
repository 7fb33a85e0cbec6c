// Package fault defines the error taxonomy shared by the store packages.
//
// Every fallible operation returns a plain error. Callers classify it with
// errors.Is against the sentinels (ErrNotFound, ...) or with the IsXxx
// helpers, both of which see through fmt.Errorf("%w") wrapping.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a store error.
type Code string

const (
	// CodeNotFound indicates the operation target is not owned by the manager.
	CodeNotFound Code = "NOT_FOUND"

	// CodeUnresolvable indicates a reference could not be turned into a live record.
	CodeUnresolvable Code = "UNRESOLVABLE"

	// CodeIOFailure indicates a backend read, write, delete or list failed.
	CodeIOFailure Code = "IO_FAILURE"

	// CodeParseFailure indicates a payload could not be decoded.
	CodeParseFailure Code = "PARSE_FAILURE"

	// CodeDuplicate indicates an explicit persistent id collides with a resident record.
	CodeDuplicate Code = "DUPLICATE"
)

// Error is a coded store error with optional record coordinates.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Kind is the record kind involved, if any.
	Kind string

	// ID is the persistent id involved, or 0.
	ID int64

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != "" {
		msg = fmt.Sprintf("%s (kind=%s, id=%d)", msg, e.Kind, e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is regardless of message or coordinates.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnresolvable = &Error{Code: CodeUnresolvable, Message: "unresolvable reference"}
	ErrIOFailure    = &Error{Code: CodeIOFailure, Message: "backend failure"}
	ErrParseFailure = &Error{Code: CodeParseFailure, Message: "parse failure"}
	ErrDuplicate    = &Error{Code: CodeDuplicate, Message: "duplicate persistent id"}
)

// NotFound creates an error for a record that is not owned by the manager.
func NotFound(kind string, id int64, message string) *Error {
	return &Error{Code: CodeNotFound, Message: message, Kind: kind, ID: id}
}

// Unresolvable creates an error for a reference that cannot be resolved.
func Unresolvable(kind string, id int64, message string) *Error {
	return &Error{Code: CodeUnresolvable, Message: message, Kind: kind, ID: id}
}

// IOFailure wraps a backend error.
func IOFailure(kind string, id int64, op string, err error) *Error {
	return &Error{Code: CodeIOFailure, Message: op, Kind: kind, ID: id, Err: err}
}

// ParseFailure wraps a decode error.
func ParseFailure(kind string, id int64, err error) *Error {
	return &Error{Code: CodeParseFailure, Message: "decode payload", Kind: kind, ID: id, Err: err}
}

// Duplicate creates an error for a colliding persistent id assignment.
func Duplicate(kind string, id int64) *Error {
	return &Error{Code: CodeDuplicate, Message: "persistent id already in use", Kind: kind, ID: id}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsUnresolvable returns true if err is an UNRESOLVABLE error.
func IsUnresolvable(err error) bool { return CodeOf(err) == CodeUnresolvable }

// IsIOFailure returns true if err is an IO_FAILURE error.
func IsIOFailure(err error) bool { return CodeOf(err) == CodeIOFailure }

// IsParseFailure returns true if err is a PARSE_FAILURE error.
func IsParseFailure(err error) bool { return CodeOf(err) == CodeParseFailure }

// IsDuplicate returns true if err is a DUPLICATE error.
func IsDuplicate(err error) bool { return CodeOf(err) == CodeDuplicate }
