package errors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for caller-side handling
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeConflict        Code = "CONFLICT"
	CodeInconsistent    Code = "INCONSISTENT"
	CodeInternal        Code = "INTERNAL"
)

// Error is a domain error carrying a classification code and, where
// applicable, the entity it refers to.
type Error struct {
	Code    Code
	Entity  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports that a referenced entity does not exist
func NotFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Entity: entity, Message: fmt.Sprintf("%q not found", id)}
}

// InvalidArgument reports a validation failure on create or update
func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a business-rule violation such as an invalid state transition
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Inconsistent reports drift detected by the repair engine or batch post-checks
func Inconsistent(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInconsistent, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a storage or infrastructure failure the engine cannot interpret
func Internal(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Err: err}
}

func is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND domain error
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT domain error
func IsInvalidArgument(err error) bool { return is(err, CodeInvalidArgument) }

// IsConflict reports whether err is a CONFLICT domain error
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsInconsistent reports whether err is an INCONSISTENT domain error
func IsInconsistent(err error) bool { return is(err, CodeInconsistent) }
