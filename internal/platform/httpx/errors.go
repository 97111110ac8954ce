// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Machine-readable error codes.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeInvalidArgument = "invalid-argument"
	CodeNotFound        = "not-found"
	CodeInternal        = "internal"
)

// StatusFor maps domain errors to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// RespondError maps domain errors to the JSON error envelope. Internal
// errors never expose their cause.
func RespondError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	body := ErrorBody{Code: code, Reason: shared.ReasonOf(err)}
	if code == CodeInternal {
		body.Message = "internal error"
	} else {
		body.Message = shared.MessageOf(err)
	}
	JSON(w, status, Envelope{OK: false, Error: &body})
}
