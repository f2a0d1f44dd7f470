package response

import (
	"errors"
	"net/http"
)

// Error is a domain error that already knows its HTTP status and the
// machine-readable reason clients branch on.
type Error struct {
	Status int
	Reason string
	Err    error
}

// Body is the error envelope every voice endpoint replies with.
type Body struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on status and reason so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Status == t.Status && e.Reason == t.Reason
}

// Body renders the error for the given request.
func (e *Error) Body(requestID string) Body {
	return Body{Error: e.Err.Error(), Code: e.Reason, RequestID: requestID}
}

func NewError(status int, reason, message string) error {
	return &Error{Status: status, Reason: reason, Err: errors.New(message)}
}

// StatusOf returns the status carried by err, or 500 for anything else.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
