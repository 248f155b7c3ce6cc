package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeAlreadyAssigned = "ALREADY_ASSIGNED"
	ErrCodeStore           = "STORE_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// Error constructors

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewAlreadyAssignedError reports a lost assignment race. The lead has an
// owner, just not the one this caller tried to set.
func NewAlreadyAssignedError(leadID string) error {
	return &DomainError{
		Code:    ErrCodeAlreadyAssigned,
		Message: fmt.Sprintf("lead %s is already assigned", leadID),
	}
}

// NewStoreError wraps a persistence failure; safe to retry since all
// mutating queries are conditional or append-only.
func NewStoreError(err error) error {
	return &DomainError{
		Code:    ErrCodeStore,
		Message: "storage operation failed",
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Helper functions to check error types

func codeOf(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotFound
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeValidation
}

// IsAlreadyAssigned checks if the error reports a lost assignment race
func IsAlreadyAssigned(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeAlreadyAssigned
}

// IsStore checks if the error is a transient storage error
func IsStore(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeStore
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeUnauthorized
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeForbidden
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeConflict
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	if code, ok := codeOf(err); ok {
		return code
	}
	return ErrCodeInternal
}
