package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure at its point of origin so callers never have to
// sniff error message text to pick an HTTP status or a retry policy.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	InvalidInput
	RateLimited
	AuthFailed
	QuotaExceeded
	ProviderUnavailable
	EmptyResult
	StorageFailed
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	case RateLimited:
		return "rate_limited"
	case AuthFailed:
		return "auth_failed"
	case QuotaExceeded:
		return "quota_exceeded"
	case ProviderUnavailable:
		return "provider_unavailable"
	case EmptyResult:
		return "empty_result"
	case StorageFailed:
		return "storage_failed"
	default:
		return "unknown"
	}
}

// Error carries a kind plus a human-readable message and optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a kinded error with a plain message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or Unknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Retryable reports whether err is worth another attempt. Only transient
// provider failures and unclassified errors qualify; validation, auth,
// quota and rate-limit failures will not improve on retry.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ProviderUnavailable, Unknown:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error kind to the status returned to the caller.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusUnprocessableEntity
	case RateLimited:
		return http.StatusTooManyRequests
	case AuthFailed:
		return http.StatusUnauthorized
	case QuotaExceeded:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
