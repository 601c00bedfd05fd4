package ledger

import (
	"errors"
	"fmt"
	"net/http"

	"sheet_ledger/internal/a1"
)

type Kind string

const (
	KindAuthRequired        Kind = "auth_required"
	KindInvalidAddress      Kind = "invalid_address"
	KindInvalidRequest      Kind = "invalid_request"
	KindSheetNotFound       Kind = "sheet_not_found"
	KindWindowFull          Kind = "window_full"
	KindWriteFailed         Kind = "write_failed"
	KindSortFailed          Kind = "sort_failed"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal            Kind = "internal"
)

// ErrAuthRequired is returned before any store call when no bearer credential was supplied.
var ErrAuthRequired = &Error{Kind: KindAuthRequired, Status: http.StatusUnauthorized, Message: "Authorization header required"}

// Error is a classified failure. Status, when non-zero, is the HTTP status
// the caller should see; for upstream failures it mirrors the store's status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrAuthRequired) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// newError builds an *Error. When err carries an upstream 4xx/5xx status that
// status wins over the fallback.
func newError(kind Kind, fallback int, message string, err error) *Error {
	e := &Error{Kind: kind, Status: fallback, Message: message, Err: err}
	var up *UpstreamError
	if errors.As(err, &up) {
		e.Details = up.Body
		if up.Status >= 400 && up.Status < 600 {
			e.Status = up.Status
		}
	}
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, a1.ErrInvalidAddress) {
		return KindInvalidAddress
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return KindUpstreamUnavailable
	}
	return KindInternal
}

// Classify returns err as an *Error, wrapping unclassified errors.
func Classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch KindOf(err) {
	case KindInvalidAddress:
		return newError(KindInvalidAddress, http.StatusBadRequest, "invalid range", err)
	case KindUpstreamUnavailable:
		return newError(KindUpstreamUnavailable, http.StatusBadGateway, "tabular store request failed", err)
	}
	return newError(KindInternal, http.StatusInternalServerError, "internal error", err)
}

// UpstreamError is a failed call to the tabular store. Status is the store's
// HTTP status, or 0 when the request never got a response.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the call could succeed.
func (e *UpstreamError) Transient() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsTransient reports whether err is a transient upstream failure.
func IsTransient(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up) && up.Transient()
}
