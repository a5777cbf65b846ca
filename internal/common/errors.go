// Package common defines shared constants, random helpers and the error
// taxonomy used across filevault layers. Callers should use errors.Is to
// match the sentinel kinds and errors.As to reach the user-facing message.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrorValidation marks bad or missing input the caller can correct.
	ErrorValidation = errors.New("validation error")

	// ErrorUnauthorized marks bad credentials or an invalid, expired or
	// forged session. Messages carried with it are always generic.
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorNotFound marks a resource that is absent OR that the caller may
	// not see. The two cases are conflated on purpose so that unauthorized
	// callers cannot probe which file ids exist.
	ErrorNotFound = errors.New("not found")

	// ErrorConflict marks a uniqueness clash, e.g. a taken username.
	ErrorConflict = errors.New("conflict")

	// ErrorIntegrity marks stored data that failed cryptographic verification.
	ErrorIntegrity = errors.New("integrity error")

	// ErrorKeyDerivation marks a malformed password verifier or KDF input.
	ErrorKeyDerivation = errors.New("key derivation error")

	// Token errors (malformed, forged, expired or wrong issuer).
	ErrInvalidToken = errors.New("invalid token")
)

// Error pairs an error kind with a message that is safe to show to the
// caller. The optional Err keeps the internal cause for logs.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Validation returns an ErrorValidation carrying msg.
func Validation(msg string) error {
	return &Error{Kind: ErrorValidation, Msg: msg}
}

// Unauthorized returns an ErrorUnauthorized carrying msg.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrorUnauthorized, Msg: msg}
}

// NotFound returns an ErrorNotFound carrying msg.
func NotFound(msg string) error {
	return &Error{Kind: ErrorNotFound, Msg: msg}
}

// Conflict returns an ErrorConflict carrying msg.
func Conflict(msg string) error {
	return &Error{Kind: ErrorConflict, Msg: msg}
}

// Integrity returns an ErrorIntegrity with a generic msg and the real cause.
func Integrity(msg string, cause error) error {
	return &Error{Kind: ErrorIntegrity, Msg: msg, Err: cause}
}

// PublicMessage returns the caller-safe message of err. Errors that carry
// no such message (driver failures, panics turned errors) yield fallback.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
