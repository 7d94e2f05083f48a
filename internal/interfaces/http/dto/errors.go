package dto

import (
	"errors"
	"net/http"

	"github.com/invoicing/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes
// (INVOICE_NOT_DRAFT, PAYMENT_EXCEEDS_BALANCE, ...) on the wire.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// kindHTTPStatus maps each domain error kind to its HTTP status
var kindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:       http.StatusBadRequest,
	shared.KindStateConflict:    http.StatusBadRequest,
	shared.KindNotFound:         http.StatusNotFound,
	shared.KindBalanceViolation: http.StatusUnprocessableEntity,
	shared.KindConflict:         http.StatusConflict,
}

// HTTPStatusForKind returns the status for kind, or 500 for an unknown kind
func HTTPStatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorCodeForKind is the fallback code for a domain error built without one
func ErrorCodeForKind(kind shared.ErrorKind) string {
	switch kind {
	case shared.KindValidation:
		return ErrCodeValidation
	case shared.KindStateConflict:
		return shared.ErrInvalidState.Code
	case shared.KindNotFound:
		return shared.ErrNotFound.Code
	case shared.KindBalanceViolation:
		return "BALANCE_VIOLATION"
	case shared.KindConflict:
		return shared.ErrConcurrencyConflict.Code
	default:
		return ErrCodeInternal
	}
}

// ResolveError returns the status, code and client-safe message for err.
// Anything that is not a domain error is reported as an internal error
// without leaking its text.
func ResolveError(err error) (status int, code, message string) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred"
	}
	code = domainErr.Code
	if code == "" {
		code = ErrorCodeForKind(domainErr.Kind)
	}
	return HTTPStatusForKind(domainErr.Kind), code, domainErr.Message
}
