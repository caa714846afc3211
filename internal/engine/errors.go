package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/liftfop/internal/rules"
)

// Error represents a per-event failure detected by the Field-of-Play.
//
// Errors are never fatal: the engine stays in its current state (or in
// the state reached before a collaborator failed) and keeps consuming
// input. Handle returns them so synchronous callers can report back to the
// initiating device; the Run loop logs them.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Event is the kind of the input that failed.
	Event string

	// State is the engine state when the input arrived.
	State State

	// Err is the underlying cause (a *rules.Violation or a collaborator
	// error), if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnexpectedEvent indicates an input that is not valid in the
	// current state.
	ErrCodeUnexpectedEvent ErrorCode = "UNEXPECTED_EVENT"

	// ErrCodeRuleViolation indicates a weight change rejected by the
	// attempt-change rules.
	ErrCodeRuleViolation ErrorCode = "RULE_VIOLATION"

	// ErrCodeCollaboratorFailure indicates the repository or the ranking
	// collaborator failed.
	ErrCodeCollaboratorFailure ErrorCode = "COLLABORATOR_FAILURE"

	// ErrCodeNoCurrentAthlete indicates an input that needs a current
	// athlete while the group has none.
	ErrCodeNoCurrentAthlete ErrorCode = "NO_CURRENT_ATHLETE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("%s: %s (event=%s, state=%s)", e.Code, e.Message, e.Event, e.State)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// hasCode walks the whole error tree: Handle joins the error of the
// event with the collaborator failures it caused.
func hasCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		return e.Code == code || hasCode(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if hasCode(inner, code) {
				return true
			}
		}
		return false
	}
	return hasCode(errors.Unwrap(err), code)
}

// HasCode reports whether any engine error in err's tree carries code.
func HasCode(err error, code ErrorCode) bool {
	return hasCode(err, code)
}

// IsUnexpected returns true if err reports an event not valid in the
// current state.
func IsUnexpected(err error) bool {
	return hasCode(err, ErrCodeUnexpectedEvent)
}

// IsRuleViolation returns true if err reports a rejected weight change.
// A bare *rules.Violation also matches.
func IsRuleViolation(err error) bool {
	return hasCode(err, ErrCodeRuleViolation) || rules.IsViolation(err)
}

// IsCollaboratorFailure returns true if a repository or ranking call
// failed while handling the event.
func IsCollaboratorFailure(err error) bool {
	return hasCode(err, ErrCodeCollaboratorFailure)
}

// IsNoCurrentAthlete returns true if the event needed a current athlete.
func IsNoCurrentAthlete(err error) bool {
	return hasCode(err, ErrCodeNoCurrentAthlete)
}

// expected reports whether err is part of normal operation (reported to
// officials) rather than a system failure.
func expected(err error) bool {
	if err == nil || IsCollaboratorFailure(err) {
		return false
	}
	return IsUnexpected(err) || IsRuleViolation(err) || IsNoCurrentAthlete(err)
}
