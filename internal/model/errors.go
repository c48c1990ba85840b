package model

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusCoder is implemented by errors that carry their own HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError wraps an error with the HTTP status to report downstream.
type StatusError struct {
	Status int
	Err    error
}

// NewStatusError returns a StatusError with a formatted message.
func NewStatusError(status int, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Err: fmt.Errorf(format, args...)}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusOf returns the first usable status carried by an error in err's chain,
// or fallback when there is none.
func StatusOf(err error, fallback int) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 100 && code <= 999 {
			return code
		}
	}
	return fallback
}
