// Package domainerrors provides coded domain errors.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those into coded errors that
// carry enough context for handlers to pick a status and render a message.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and branching.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal"

	// CodeInvariantViolation marks a broken domain invariant; these indicate
	// bugs rather than bad input and map to 500.
	CodeInvariantViolation Code = "invariant_violation"

	// Attendance-specific outcomes. These are terminal user-facing denials,
	// never retried.
	CodeSubscriptionInactive Code = "subscription_inactive"
	CodeNotRecognized        Code = "not_recognized"
	CodeAlreadyCheckedIn     Code = "already_checked_in"
)

// Error is a coded domain error with an optional wrapped cause and
// free-form detail fields for rendering user-facing messages.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetail adds a rendering detail and returns the same error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code == code
	}
	return false
}

// Is allows errors.Is comparisons between coded errors by code.
func (e *Error) Is(target error) bool {
	var derr *Error
	if errors.As(target, &derr) {
		return e.Code == derr.Code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a coded error to the status a handler should return.
// Unknown and internal codes map to 500 so that bugs are never mistaken
// for client faults.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeBadRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeSubscriptionInactive:
		return http.StatusForbidden
	case CodeNotFound, CodeNotRecognized:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyCheckedIn:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
