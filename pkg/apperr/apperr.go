// Package apperr defines the error kinds shared by every service. Services
// declare their own sentinels on top of these kinds, and the HTTP layer maps
// a kind to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid      = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New returns an error with message msg that matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Invalidf is shorthand for a formatted ErrInvalid error.
func Invalidf(format string, args ...any) error {
	return New(ErrInvalid, fmt.Sprintf(format, args...))
}

// NotFoundf is shorthand for a formatted ErrNotFound error.
func NotFoundf(format string, args ...any) error {
	return New(ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf is shorthand for a formatted ErrConflict error.
func Conflictf(format string, args ...any) error {
	return New(ErrConflict, fmt.Sprintf(format, args...))
}
