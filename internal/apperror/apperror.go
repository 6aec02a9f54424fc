// Package apperror defines the closed set of error categories the service
// layer returns and the HTTP layer maps to status codes.
//
// WHY SENTINEL ERRORS + A WRAPPER STRUCT?
// Handlers need two things from an error: a CATEGORY (to pick a status code)
// and a MESSAGE (to show the caller). The sentinels below carry the category;
// *AppError carries the message and wraps the sentinel so errors.Is() can
// still match it anywhere in a wrapped chain.
package apperror

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCapacity means the short-code keyspace could not yield a free code
	// within the retry bound. 62^3 codes is small enough that this is a real
	// operational condition, not a theoretical one.
	ErrCapacity = errors.New("capacity exhausted")
)

type AppError struct {
	Err     error  // category sentinel (one of the vars above)
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record. It is also returned when the record
// exists but belongs to another user — callers must not be able to tell
// the difference.
func NotFound(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized reports bad credentials or a missing/invalid token.
// Login failures use one uniform message — it never says whether the email
// or the password was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func Capacity(message string) *AppError {
	return &AppError{
		Err:     ErrCapacity,
		Message: message,
	}
}
