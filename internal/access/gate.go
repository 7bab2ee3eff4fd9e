// Package access classifies requesters and decides which operations they may
// run. It has no knowledge of HTTP or storage; middleware and services call it.
package access

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Class is the request class. Higher classes include the lower ones.
type Class int

const (
	ClassAnonymous Class = iota
	ClassAuthenticated
	ClassAdmin
)

func (c Class) String() string {
	switch c {
	case ClassAuthenticated:
		return "authenticated"
	case ClassAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Principal is whoever issued the request. A nil Principal is anonymous.
type Principal struct {
	UserID  int64
	IsAdmin bool
}

// Classify returns the request class of p.
func Classify(p *Principal) Class {
	switch {
	case p == nil:
		return ClassAnonymous
	case p.IsAdmin:
		return ClassAdmin
	default:
		return ClassAuthenticated
	}
}

type Operation string

const (
	OpListBooks   Operation = "books:list"
	OpSearchBooks Operation = "books:search"
	OpGetBook     Operation = "books:get"
	OpCreateBook  Operation = "books:create"
	OpUpdateBook  Operation = "books:update"
	OpDeleteBook  Operation = "books:delete"

	OpBorrow            Operation = "borrows:create"
	OpReturnBorrow      Operation = "borrows:return"
	OpListOwnBorrows    Operation = "borrows:list-own"
	OpListActiveBorrows Operation = "borrows:list-active"
	OpListAllBorrows    Operation = "borrows:list-all"

	OpCurrentUser Operation = "users:me"
	OpListUsers   Operation = "users:list"
	OpUpdateUser  Operation = "users:update"
	OpDeleteUser  Operation = "users:delete"
)

// required is the operation-to-class table. Returning someone else's borrow is
// gated as authenticated here; ownership is checked by CanReturn.
var required = map[Operation]Class{
	OpListBooks:   ClassAnonymous,
	OpSearchBooks: ClassAnonymous,
	OpGetBook:     ClassAnonymous,
	OpCreateBook:  ClassAdmin,
	OpUpdateBook:  ClassAdmin,
	OpDeleteBook:  ClassAdmin,

	OpBorrow:            ClassAuthenticated,
	OpReturnBorrow:      ClassAuthenticated,
	OpListOwnBorrows:    ClassAuthenticated,
	OpListActiveBorrows: ClassAuthenticated,
	OpListAllBorrows:    ClassAdmin,

	OpCurrentUser: ClassAuthenticated,
	OpListUsers:   ClassAdmin,
	OpUpdateUser:  ClassAdmin,
	OpDeleteUser:  ClassAdmin,
}

// RequiredClass reports the minimum class for op.
func RequiredClass(op Operation) (Class, bool) {
	c, ok := required[op]
	return c, ok
}

// Authorize returns nil when p may run op, ErrUnauthorized when an anonymous
// caller hits a gated operation and ErrForbidden when the role is insufficient.
func Authorize(p *Principal, op Operation) error {
	need, ok := required[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	have := Classify(p)
	if have >= need {
		return nil
	}
	if have == ClassAnonymous {
		return ErrUnauthorized
	}
	return ErrForbidden
}

// CanReturn allows the owner of a ledger entry or any admin.
func CanReturn(p *Principal, ownerID int64) error {
	if p == nil {
		return ErrUnauthorized
	}
	if p.IsAdmin || p.UserID == ownerID {
		return nil
	}
	return ErrForbidden
}

// CanDeleteAccount applies the admin gate plus the self-deletion guard.
func CanDeleteAccount(p *Principal, targetID int64) error {
	if err := Authorize(p, OpDeleteUser); err != nil {
		return err
	}
	if p.UserID == targetID {
		return fmt.Errorf("%w: cannot delete your own account", ErrInvalidOperation)
	}
	return nil
}
