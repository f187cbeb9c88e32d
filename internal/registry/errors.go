package registry

import (
	"errors"
	"fmt"

	"github.com/roach88/fieldreg/internal/ir"
)

// Code is a registry error code. The set is closed.
type Code int

const (
	// CodeNotFound means the referenced equipment or record does not exist.
	CodeNotFound Code = 404

	// CodeUnauthorized means the caller does not own the equipment.
	CodeUnauthorized Code = 403
)

// Sentinels for errors.Is.
var (
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
)

// Entity names used in errors.
const (
	EntityEquipment   = "equipment"
	EntityMaintenance = "maintenance record"
	EntityTransfer    = "transfer record"
)

// Error is a failed registry precondition.
type Error struct {
	Code Code

	// Op is the operation that failed, e.g. "setStatus".
	Op string

	// Entity and ID identify the record the operation referenced.
	Entity string
	ID     string

	// Caller is set for authorization failures.
	Caller ir.Principal
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case CodeNotFound:
		return fmt.Sprintf("%s: %s %s not found (%d)", e.Op, e.Entity, e.ID, e.Code)
	case CodeUnauthorized:
		return fmt.Sprintf("%s: %s %s is not owned by %q (%d)", e.Op, e.Entity, e.ID, e.Caller, e.Code)
	default:
		return fmt.Sprintf("%s: registry error %d", e.Op, e.Code)
	}
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// works for every not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// IsNotFound reports whether err is a 404 registry error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err is a 403 registry error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// CodeOf returns the registry code of err, or 0 when err is not a registry
// error.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return 0
}

func notFound(op, entity string, id any) *Error {
	return &Error{Code: CodeNotFound, Op: op, Entity: entity, ID: fmt.Sprint(id)}
}

func unauthorized(op string, id int64, caller ir.Principal) *Error {
	return &Error{Code: CodeUnauthorized, Op: op, Entity: EntityEquipment, ID: fmt.Sprint(id), Caller: caller}
}
