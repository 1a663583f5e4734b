// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidFormat = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "matching", "notification"
	Op      string // Operation that failed, e.g., "Confirm", "Cancel"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
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

// Matching domain errors
var (
	ErrUserNotFound        = NewDomainError("matching", "FindUser", ErrNotFound, "user not found")
	ErrMatchNotFound       = NewDomainError("matching", "FindMatch", ErrNotFound, "match not found")
	ErrInvalidTransition   = NewDomainError("matching", "Transition", ErrStateTransition, "match state transition not allowed")
	ErrNotParticipant      = NewDomainError("matching", "CheckParticipant", ErrForbidden, "user is not a participant of this match")
	ErrAlreadyConfirmed    = NewDomainError("matching", "ConfirmParticipant", ErrStateTransition, "participant already confirmed")
	ErrMalformedStatus     = NewDomainError("matching", "ParseStatus", ErrInvalidFormat, "unrecognized match status")
	ErrInvalidUserID       = NewDomainError("matching", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidMatchID      = NewDomainError("matching", "Validate", ErrInvalidID, "invalid match ID")
	ErrSelfMatch           = NewDomainError("matching", "Pair", ErrInvalidInput, "cannot match a user with themself")
	ErrInvalidAvailability = NewDomainError("matching", "Validate", ErrInvalidInput, "invalid availability block")
)

// Notification domain errors
var (
	ErrNotificationFailed = NewDomainError("notification", "Send", ErrExternalService, "failed to send notification")
	ErrInvalidChannel     = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification channel")
	ErrInvalidEvent       = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification event")
)

// External gateway errors
var (
	ErrSMSGatewayFailed  = NewDomainError("sms", "Send", ErrExternalService, "SMS gateway request failed")
	ErrMailGatewayFailed = NewDomainError("mail", "Send", ErrExternalService, "mail gateway request failed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsStateTransition checks if the error is a state transition error.
func IsStateTransition(err error) bool {
	return errors.Is(err, ErrStateTransition)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
