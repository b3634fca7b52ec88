package pipeline

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrTransport means no usable response reached the client.
	ErrTransport = errors.New("transport failure")
	// ErrAuth means the session is no longer authenticated (401 from the
	// envelope or from HTTP).
	ErrAuth = errors.New("authentication expired")
	// ErrBusiness means the server answered with a non-success application code
	// or an unexpected HTTP status.
	ErrBusiness = errors.New("business failure")
	// ErrServer means HTTP 404 or 500.
	ErrServer = errors.New("server failure")
	// ErrInvalidBaseURL is returned by New for an unusable base URL.
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// RequestError is the error returned for every failed call. Kind is one of the
// package sentinels; Err carries the underlying cause when there is one.
type RequestError struct {
	Kind    error
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		b.WriteString(" (http ")
		b.WriteString(strconv.Itoa(e.Status))
		b.WriteByte(')')
	}
	if e.Code != 0 {
		b.WriteString(" (code ")
		b.WriteString(strconv.Itoa(e.Code))
		b.WriteByte(')')
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
