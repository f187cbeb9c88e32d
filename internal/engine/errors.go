package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/fieldreg/internal/ir"
)

// RuntimeError is an engine failure that is not a registry outcome.
//
// Registry outcomes (404, 403) are journaled completions and surface as
// *registry.Error. A RuntimeError means the request never reached the
// registry, or the journal could not record it.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Action is the action being executed, when known.
	Action ir.ActionRef

	// Seq is the invocation seq, when one was assigned.
	Seq int64

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownAction indicates an action reference the engine cannot dispatch.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeInvalidArgs indicates arguments that do not decode for the action.
	ErrCodeInvalidArgs RuntimeErrorCode = "INVALID_ARGS"

	// ErrCodeJournal indicates a failed journal write.
	ErrCodeJournal RuntimeErrorCode = "JOURNAL"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Action != "" {
		msg += fmt.Sprintf(" (action=%s", e.Action)
		if e.Seq != 0 {
			msg += fmt.Sprintf(", seq=%d", e.Seq)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func codeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsInvalidArgs reports whether err is an argument decoding error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgs(err error) bool {
	return codeOf(err) == ErrCodeInvalidArgs
}

// IsUnknownAction reports whether err names an action the engine cannot run.
func IsUnknownAction(err error) bool {
	return codeOf(err) == ErrCodeUnknownAction
}

// IsJournalError reports whether err is a journal write failure.
func IsJournalError(err error) bool {
	return codeOf(err) == ErrCodeJournal
}

func newInvalidArgs(action ir.ActionRef, err error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeInvalidArgs, Message: "invalid arguments", Action: action, Err: err}
}

func newUnknownAction(action ir.ActionRef) *RuntimeError {
	return &RuntimeError{Code: ErrCodeUnknownAction, Message: "no such action", Action: action}
}

func newJournalError(action ir.ActionRef, seq int64, err error) *RuntimeError {
	return &RuntimeError{Code: ErrCodeJournal, Message: "journal write failed", Action: action, Seq: seq, Err: err}
}
