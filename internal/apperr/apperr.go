// Package apperr defines the error kinds services report to the HTTP layer.
// Each kind maps to exactly one status code; the message is safe to show to
// clients except for Internal, whose message is only logged.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.  Kinds are comparable with errors.Is.
type Kind struct {
	name   string
	status int
}

func (k *Kind) Error() string { return k.name }

// Status is the HTTP status code for the kind.
func (k *Kind) Status() int { return k.status }

var (
	InvalidInput    = &Kind{"invalid input", http.StatusBadRequest}
	Unauthenticated = &Kind{"unauthenticated", http.StatusUnauthorized}
	Forbidden       = &Kind{"forbidden", http.StatusForbidden}
	NotFound        = &Kind{"not found", http.StatusNotFound}
	Conflict        = &Kind{"conflict", http.StatusConflict}
	Internal        = &Kind{"internal error", http.StatusInternalServerError}
)

// Error carries a kind, a client-facing message and an optional cause.
type Error struct {
	Kind    *Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.Conflict) match any *Error of that kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Kind)
	return ok && k == e.Kind
}

func New(kind *Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches a cause.  Used for Internal errors so the cause reaches logs.
func Wrap(kind *Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// InternalErr hides err behind a generic message.
func InternalErr(err error) *Error { return Wrap(Internal, "internal server error", err) }

// KindOf returns the kind of err, or Internal for anything unclassified.
func KindOf(err error) *Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, k := range []*Kind{InvalidInput, Unauthenticated, Forbidden, NotFound, Conflict, Internal} {
		if errors.Is(err, k) {
			return k
		}
	}
	return Internal
}
