package service

import (
	"errors"

	"github.com/google/uuid"
)

// Sentinel categories the handlers map onto HTTP status codes via errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

type categorizedError struct {
	kind error
	msg  string
}

func (e *categorizedError) Error() string { return e.msg }
func (e *categorizedError) Unwrap() error { return e.kind }

func notFound(msg string) error  { return &categorizedError{kind: ErrNotFound, msg: msg} }
func forbidden(msg string) error { return &categorizedError{kind: ErrForbidden, msg: msg} }
func conflict(msg string) error  { return &categorizedError{kind: ErrConflict, msg: msg} }

// Actor identifies the authenticated caller as extracted from the JWT.
type Actor struct {
	ID   uuid.UUID
	Role string
}
