// Package derrors defines coded domain errors shared by services and the HTTP
// transport. Services attach a Code describing the business outcome; the
// transport translates codes to HTTP statuses without inspecting error text.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeInternal           Code = "internal"
	CodeInvalidAmount      Code = "invalid_amount"
	CodeLimitExceeded      Code = "limit_exceeded"
	CodeIllegalTransition  Code = "illegal_transition"
	CodeNotificationFailed Code = "notification_failed"
	CodeCommitFailed       Code = "commit_failed"
)

// Error is a domain error carrying a Code and an operator-facing message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used at transport boundaries.
func Is(err error, code Code) bool { return HasCode(err, code) }

// MessageOf returns the operator-facing message, or a generic fallback when
// err is not a domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "system error"
}

// CodeOf returns the code carried by err, or CodeInternal when absent.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status for the transport
// layer. Unknown codes map to 500 so nothing leaks as an accidental success.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidAmount, CodeLimitExceeded:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeIllegalTransition:
		return http.StatusConflict
	case CodeNotificationFailed, CodeCommitFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
