// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package apierror defines the closed set of failure kinds the HTTP boundary
// can report, and the JSON envelope they are rendered into.
package apierror

import (
	"errors"
	"net/http"
	"strings"
)

// Kind identifies a failure class. The set is closed; every kind has a fixed
// HTTP status.
type Kind string

// Failure kinds.
const (
	KindRequestValidation Kind = "RequestValidationError"
	KindBadRequest        Kind = "BadRequestError"
	KindUnauthorized      Kind = "UnauthorizedError"
	KindNotFound          Kind = "NotFoundError"
	KindInternal          Kind = "InternalServerError"
)

// genericInternalMessage is what clients see for unclassified failures.
const genericInternalMessage = "Something went wrong"

// Status returns the HTTP status code for the kind. Unknown kinds map to 500.
func (k Kind) Status() int {
	switch k {
	case KindRequestValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message is a single human-readable failure message. Field is set for
// request validation failures.
type Message struct {
	Msg   string `json:"msg"`
	Field string `json:"field,omitempty"`
}

// Error is a classified failure. Messages is never empty.
type Error struct {
	Kind     Kind
	Messages []Message
	cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		if m.Field != "" {
			msgs = append(msgs, m.Field+": "+m.Msg)
			continue
		}
		msgs = append(msgs, m.Msg)
	}
	return string(e.Kind) + ": " + strings.Join(msgs, "; ")
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Envelope renders the error as the wire envelope.
func (e *Error) Envelope() Envelope {
	msgs := e.Messages
	if len(msgs) == 0 {
		msgs = []Message{{Msg: string(e.Kind)}}
	}
	return Envelope{
		Success:  false,
		Kind:     e.Kind,
		Status:   e.Status(),
		Messages: msgs,
	}
}

// Envelope is the JSON body of every failure response.
type Envelope struct {
	Success  bool      `json:"success"`
	Kind     Kind      `json:"kind"`
	Status   int       `json:"status"`
	Messages []Message `json:"messages"`
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Messages: []Message{{Msg: msg}}}
}

// BadRequest reports a semantically invalid request.
func BadRequest(msg string) *Error { return newError(KindBadRequest, msg) }

// Unauthorized reports a missing or rejected identity.
func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg) }

// NotFound reports an unmatched route.
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// Internal reports an unanticipated failure. The cause is kept for logging
// and never rendered.
func Internal(cause error) *Error {
	e := newError(KindInternal, genericInternalMessage)
	e.cause = cause
	return e
}

// Validation reports per-field schema failures.
func Validation(msgs ...Message) *Error {
	return &Error{Kind: KindRequestValidation, Messages: msgs}
}

// WithCause attaches an underlying error for logging.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// From classifies err. A classified error anywhere in the chain is returned
// as is; anything else becomes an internal error wrapping err.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return From(err).Kind == kind
}
