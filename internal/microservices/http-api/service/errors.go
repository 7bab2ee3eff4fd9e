package service

import (
	"errors"
	"fmt"

	"libraryhub/internal/access"
)

// Every rejected precondition maps to exactly one of these. Handlers match
// them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("no available copies")
	ErrAlreadyBorrowed = errors.New("book already borrowed by this account")
	ErrAlreadyReturned = errors.New("borrow already returned")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrInternal        = errors.New("internal error")

	ErrUnauthorized     = access.ErrUnauthorized
	ErrForbidden        = access.ErrForbidden
	ErrInvalidOperation = access.ErrInvalidOperation
)

// internalErr wraps a store failure so callers see ErrInternal while logs keep the cause.
func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

var known = []error{
	ErrNotFound, ErrUnavailable, ErrAlreadyBorrowed, ErrAlreadyReturned,
	ErrConflict, ErrValidation, ErrInternal,
	ErrUnauthorized, ErrForbidden, ErrInvalidOperation,
}

// surface passes taxonomy errors through untouched and wraps anything else
// (commit failures, cancelled contexts) as ErrInternal.
func surface(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return internalErr(op, err)
}
