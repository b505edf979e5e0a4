package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeUnavailable     ErrorType = "unavailable"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. Sentinel values compare by identity so that the
// individual rejection reasons stay distinguishable; wrapped copies made via
// WithCause compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithCause returns a copy of the error carrying an underlying cause
func (e *DomainError) WithCause(err error) *DomainError {
	c := e.copy()
	c.Err = err
	return c
}

// WithDetail returns a copy of the error carrying an additional detail.
// Sentinels are shared across requests and must never be written to.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	c := e.copy()
	if c.Details == nil {
		c.Details = make(map[string]interface{})
	}
	c.Details[key] = value
	return c
}

func (e *DomainError) copy() *DomainError {
	c := &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     e.Err,
	}
	if e.Details != nil {
		c.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return c
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Domain error variables

var (
	// Credential verification failures (token-level)
	ErrBadSignature = NewDomainError(ErrorTypeUnauthenticated, "token signature mismatch", nil)
	ErrExpired      = NewDomainError(ErrorTypeUnauthenticated, "token expired", nil)
	ErrMalformed    = NewDomainError(ErrorTypeUnauthenticated, "token malformed", nil)
	ErrMissingRole  = NewDomainError(ErrorTypeUnauthenticated, "token carries no role claim", nil)

	// Request authentication failures
	ErrUnauthenticated = NewDomainError(ErrorTypeUnauthenticated, "authentication required", nil)
	ErrForbidden       = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)

	// Refresh handshake rejections
	ErrCannotIdentifyPrincipal = NewDomainError(ErrorTypeUnauthenticated, "cannot identify principal from access token", nil)
	ErrUnknownPrincipal        = NewDomainError(ErrorTypeUnauthenticated, "unknown principal", nil)
	ErrNoActiveSession         = NewDomainError(ErrorTypeUnauthenticated, "no active session", nil)
	ErrReuseDetected           = NewDomainError(ErrorTypeUnauthenticated, "refresh token reuse detected", nil)

	// Session issuance
	ErrSessionConflict = NewDomainError(ErrorTypeConflict, "concurrent session update", nil)

	// Store availability
	ErrStoreUnavailable = NewDomainError(ErrorTypeUnavailable, "credential store unavailable", nil)

	// Identity bridge
	ErrExternalIdentityConflict = NewDomainError(ErrorTypeConflict, "account with this email already exists", nil)

	// Local login/signup. Login failures share one message so the boundary
	// cannot be used to enumerate accounts.
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthenticated, "invalid username or password", nil)
	ErrDuplicateUsername  = NewDomainError(ErrorTypeConflict, "username already exists", nil)
	ErrDuplicateEmail     = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrUserNotFound       = NewDomainError(ErrorTypeNotFound, "user not found", nil)

	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInternal     = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthenticatedError checks if an error is an authentication failure
func IsUnauthenticatedError(err error) bool {
	return hasType(err, ErrorTypeUnauthenticated)
}

// IsForbiddenError checks if an error is a role/permission failure
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsUnavailableError checks if an error reports backing-store unavailability
func IsUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUnavailable)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the error type of a domain error, or internal for unknown errors
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}

// GetErrorDetails returns the details map of a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
