package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned values still compare equal to the predefined ones.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials  = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized        = New("UNAUTHORIZED", http.StatusUnauthorized, "authentication required")
	ErrConflict            = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUpstreamUnavailable = New("UPSTREAM_UNAVAILABLE", http.StatusServiceUnavailable, "datastore unavailable, please retry")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Admission outcomes. These are expected, user-facing results of a booking attempt.
var (
	ErrSlotNotFound         = New("SLOT_NOT_FOUND", http.StatusNotFound, "this time slot is not available for booking")
	ErrSlotBlocked          = New("SLOT_BLOCKED", http.StatusConflict, "this slot is currently blocked and cannot be booked")
	ErrSlotFull             = New("SLOT_FULL", http.StatusConflict, "this slot is fully booked")
	ErrDuplicateDayBooking  = New("DUPLICATE_DAY_BOOKING", http.StatusConflict, "you can only book one slot per day")
	ErrDuplicateSlotBooking = New("DUPLICATE_SLOT_BOOKING", http.StatusConflict, "you have already booked this slot")
)

// IsAdmissionFailure reports whether err is one of the admission outcomes.
func IsAdmissionFailure(err error) bool {
	return errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrSlotBlocked) ||
		errors.Is(err, ErrSlotFull) ||
		errors.Is(err, ErrDuplicateDayBooking) ||
		errors.Is(err, ErrDuplicateSlotBooking)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Upstream wraps a datastore failure as UpstreamUnavailable.
func Upstream(err error, message string) *Error {
	if message == "" {
		message = ErrUpstreamUnavailable.Message
	}
	return Wrap(err, ErrUpstreamUnavailable.Code, ErrUpstreamUnavailable.Status, message)
}
