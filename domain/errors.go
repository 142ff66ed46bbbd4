package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeInvalid          ErrorCode = "INVALID"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyOpen      ErrorCode = "ALREADY_OPEN"
	ErrCodeClosed           ErrorCode = "CLOSED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeExceedsAllowance ErrorCode = "EXCEEDS_ALLOWANCE"
	ErrCodeMirrorFailed     ErrorCode = "MIRROR_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error

	// RetryAfter is populated only for ErrCodeRateLimited and tells the
	// caller when the velocity window frees up.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors. Validation and ledger-rule errors are detected
// before any external call and are always safe to retry with corrected
// input; MirrorFailed is the one code where local and external state may
// have diverged.
var (
	ErrSessionNotFound  = NewError(ErrCodeNotFound, "session not found")
	ErrSessionOpen      = NewError(ErrCodeAlreadyOpen, "session already open")
	ErrSessionClosed    = NewError(ErrCodeClosed, "session closed")
	ErrExceedsAllowance = NewError(ErrCodeExceedsAllowance, "spend exceeds allowance")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
)

// NewRateLimited builds the advisory, self-clearing velocity error.
func NewRateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       ErrCodeRateLimited,
		Message:    fmt.Sprintf("velocity limit reached, retry after %s", retryAfter),
		RetryAfter: retryAfter,
	}
}

// NewMirrorFailed marks a settlement-system call that was rejected, timed
// out or faulted after the local commit. The local record is ahead of the
// external ledger until an operator reconciles.
func NewMirrorFailed(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeMirrorFailed,
		Message: fmt.Sprintf("settlement mirror %s failed", op),
		Err:     err,
	}
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// AsDomainError extracts the typed error when present.
func AsDomainError(err error) (*Error, bool) {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr, true
	}
	return nil, false
}
