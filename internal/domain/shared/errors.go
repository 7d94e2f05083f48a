package shared

import "errors"

// ErrorKind classifies a domain error so outer layers can map it without reading messages
type ErrorKind string

const (
	// KindValidation means the input was malformed and nothing was mutated
	KindValidation ErrorKind = "VALIDATION"
	// KindStateConflict means the operation is not legal in the aggregate's current status
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	// KindNotFound means an identifier did not resolve
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindBalanceViolation means a payment amount is non-positive or exceeds the balance due
	KindBalanceViolation ErrorKind = "BALANCE_VIOLATION"
	// KindConflict means a concurrent writer won or a unique key is taken; callers may retry
	KindConflict ErrorKind = "CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// Sentinels and freshly built errors with a more specific message compare equal,
// and every not-found error matches ErrNotFound.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t == ErrNotFound && e.Kind == KindNotFound {
		return true
	}
	return e.Code == t.Code
}

// NewDomainError creates a new validation domain error
func NewDomainError(code, message string) *DomainError {
	return NewDomainErrorWithKind(KindValidation, code, message)
}

// NewDomainErrorWithKind creates a new domain error of the given kind
func NewDomainErrorWithKind(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewStateConflictError creates an error for an operation not allowed in the current status
func NewStateConflictError(code, message string) *DomainError {
	return NewDomainErrorWithKind(KindStateConflict, code, message)
}

// NewNotFoundError creates an error for an identifier that did not resolve
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainErrorWithKind(KindNotFound, code, message)
}

// NewBalanceViolationError creates an error for a payment that breaks the balance rules
func NewBalanceViolationError(code, message string) *DomainError {
	return NewDomainErrorWithKind(KindBalanceViolation, code, message)
}

// KindOf returns the kind of err, or an empty kind when err is not a DomainError
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainErrorWithKind(KindConflict, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainErrorWithKind(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewStateConflictError("INVALID_STATE", "Operation not allowed in current state")
)
