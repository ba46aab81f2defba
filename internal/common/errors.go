// Package common holds the error taxonomy shared by repositories, services
// and the HTTP layer. Callers match kinds with errors.Is.
package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// service specific errors
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorInternal     = errors.New("internal error")

	ErrInvalidToken = errors.New("invalid token")
)

// Error is a domain error: a client-safe message tagged with one of the
// kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	// account
	ErrEmailTaken         = newError(ErrorConflict, "email already exists")
	ErrInvalidCredentials = newError(ErrorUnauthorized, "email or password incorrect")
	ErrUserNotFound       = newError(ErrorNotFound, "user not found")
	ErrInvalidPin         = newError(ErrorUnauthorized, "invalid pin")

	// notes
	ErrNoteNotFound      = newError(ErrorNotFound, "note not found")
	ErrNoteNotOwned      = newError(ErrorUnauthorized, "note not found or does not belong to user")
	ErrRecipientNotFound = newError(ErrorNotFound, "recipient not found")
	ErrAlreadyShared     = newError(ErrorConflict, "note already shared with recipient")
	ErrShareWithSelf     = newError(ErrorValidation, "note cannot be shared with its owner")
	ErrShareNotFound     = newError(ErrorNotFound, "shared note not found")
	ErrEditForbidden     = newError(ErrorForbidden, "user is not allowed to edit this note")
	ErrAlreadyFavorited  = newError(ErrorValidation, "note already favorited")
)
