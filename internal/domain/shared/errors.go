// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. The only external dependency is google/uuid.
package shared

import (
	"errors"
	"fmt"
)

// Base domain error kinds. Every error that leaves the domain or application
// layer wraps exactly one of the four top-level kinds below, so transports can
// map errors with errors.Is().
var (
	// ErrValidation: malformed input. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound: entity absent or not visible to the learner.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict: the operation collides with current state. Informational.
	ErrConflict = errors.New("conflict")

	// ErrTransient: the store is unavailable. Safe to retry the whole operation.
	ErrTransient = errors.New("transient store error")
)

// Finer-grained causes, each classified under one of the kinds above.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrNonPositive     = errors.New("value must be positive")
	ErrStateTransition = errors.New("invalid state transition")
	ErrAlreadyApproved = errors.New("already approved")
	ErrTimeout         = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "ledger", "checkin", "submission"
	Op      string // operation that failed, e.g. "Credit"
	Kind    error  // one of ErrValidation, ErrNotFound, ErrConflict, ErrTransient
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, or the kind if there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is reports whether target matches the kind or the wrapped cause.
func (e *DomainError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError creates a new DomainError.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Constructors per kind
// ──────────────────────────────────────────────────────────────────────────────

// Validation returns a validation error for domain/op.
func Validation(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// NotFound returns a not-found error for domain/op.
func NotFound(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, message)
}

// Conflict returns a conflict error for domain/op.
func Conflict(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrConflict, message)
}

// Transient wraps a store failure as retryable.
func Transient(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrTransient, "store unavailable", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Predicates
// ──────────────────────────────────────────────────────────────────────────────

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsTransient(err error) bool  { return errors.Is(err, ErrTransient) }

// IsRetryable reports whether retrying the whole logical operation may help.
func IsRetryable(err error) bool {
	return IsTransient(err) || errors.Is(err, ErrTimeout)
}
