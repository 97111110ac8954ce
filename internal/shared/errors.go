package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated indicates the request carries no verified identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the identity is known but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument indicates a malformed mode, selector, cutoff or email.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInternal indicates a storage or infrastructure failure.
	ErrInternal = errors.New("internal")
)

// Forbidden reasons.
const (
	ReasonDisabled               = "disabled"
	ReasonNotFound               = "not-found"
	ReasonInsufficientCapability = "insufficient-capability"
)

// Error carries a kind sentinel plus an optional machine-readable reason.
type Error struct {
	Kind    error
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Is matches the kind sentinel so callers can use errors.Is(err, ErrForbidden).
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthenticated builds an ErrUnauthenticated error.
func Unauthenticated(msg string) error {
	return &Error{Kind: ErrUnauthenticated, Message: msg}
}

// Forbidden builds an ErrForbidden error with the given reason.
func Forbidden(reason string) error {
	return &Error{Kind: ErrForbidden, Reason: reason, Message: "forbidden"}
}

// Invalid builds an ErrInvalidArgument error.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Internal wraps a storage or infrastructure failure.
func Internal(msg string, err error) error {
	return &Error{Kind: ErrInternal, Message: msg, Err: err}
}

// ReasonOf returns the forbidden reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// MessageOf returns a message safe to show to API callers. Internal errors
// never leak their cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if errors.Is(e.Kind, ErrInternal) {
			return e.Message
		}
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.Error()
	}
	if errors.Is(err, ErrInternal) {
		return ErrInternal.Error()
	}
	return err.Error()
}
