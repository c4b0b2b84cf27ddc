package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error is the typed domain error every layer speaks. Code identifies the
// failure class for clients and metrics labels, Status is the HTTP mapping,
// and Err keeps the underlying cause out of the serialized form.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches by code, so a Clone with a customised message still satisfies
// errors.Is against its sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && other != nil && e.Code == other.Code
}

// New creates an Error.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a cause to a fresh Error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Clone copies a sentinel, optionally overriding its message. Sentinels are
// shared and must never be mutated in place.
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

// Sentinel errors for the failure classes the domain distinguishes.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrAlreadyConfirmed   = New("ALREADY_CONFIRMED", http.StatusConflict, "already confirmed")
	ErrTokenExpired       = New("TOKEN_EXPIRED", http.StatusGone, "token expired")
	ErrNotConfirmed       = New("NOT_CONFIRMED", http.StatusPreconditionFailed, "resource not confirmed")
	ErrCrypto             = New("CRYPTO_ERROR", http.StatusInternalServerError, "cryptographic operation failed")
	ErrTimeout            = New("TIMEOUT", http.StatusGatewayTimeout, "operation timed out")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// AlreadyConfirmedAt reports a repeated confirmation attempt, carrying the
// original confirmation time so the caller can surface it.
func AlreadyConfirmedAt(subject string, confirmedAt time.Time) *Error {
	return Clone(ErrAlreadyConfirmed,
		fmt.Sprintf("%s already confirmed at %s", subject, confirmedAt.Format(time.RFC3339)))
}

// ExpiredAt reports a confirmation attempt on a token past its lifetime.
func ExpiredAt(subject string, expiresAt time.Time) *Error {
	return Clone(ErrTokenExpired,
		fmt.Sprintf("%s expired at %s", subject, expiresAt.Format(time.RFC3339)))
}

// FromError normalises any error into an *Error. Unknown causes map to
// INTERNAL_ERROR; context deadline errors map to TIMEOUT so callers can tell
// an overloaded dependency from a bug.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, ErrTimeout.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}
