package workflow

import (
	"errors"
	"fmt"

	"github.com/jonathan/hiring-pipeline/internal/oracle"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyAnswered = errors.New("already answered")
	ErrForbidden       = errors.New("forbidden")
	// ErrOracleUnavailable aliases the oracle package sentinel so callers need not import it.
	ErrOracleUnavailable = oracle.ErrUnavailable
	ErrDuplicateEmail    = errors.New("email already registered")
)

// Entity names used in error details.
const (
	EntityActor     = "actor"
	EntityRequest   = "mapping_request"
	EntityInterview = "interview"
	EntityQuestion  = "question"
	EntityResponse  = "response"
	EntityMessage   = "message"
)

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidStateError reports a violated status or role precondition.
// Expected and Actual are empty when the precondition is not a status.
type InvalidStateError struct {
	Entity   string
	ID       string
	Expected string
	Actual   string
	Reason   string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("%s %s is in an invalid state", e.Entity, e.ID)
	if e.Expected != "" || e.Actual != "" {
		msg = fmt.Sprintf("%s %s: expected status %s, got %s", e.Entity, e.ID, e.Expected, e.Actual)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// ConflictError reports a compare-and-swap that lost a race. Retrying the
// operation once the competing one has settled is safe.
type ConflictError struct {
	Entity   string
	ID       string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update of %s %s: expected %s, found %s", e.Entity, e.ID, e.Expected, e.Actual)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// AlreadyAnsweredError reports a second submission for an answered question.
type AlreadyAnsweredError struct {
	InterviewID string
	QuestionID  string
}

func (e *AlreadyAnsweredError) Error() string {
	return fmt.Sprintf("question %s of interview %s is already answered", e.QuestionID, e.InterviewID)
}

func (e *AlreadyAnsweredError) Is(target error) bool { return target == ErrAlreadyAnswered }

// ForbiddenError reports an actor acting on something it does not own.
type ForbiddenError struct {
	ActorID string
	Action  string
	Reason  string
}

func (e *ForbiddenError) Error() string {
	msg := fmt.Sprintf("actor %s may not %s", e.ActorID, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// DuplicateEmailError is returned by stores when an email is already registered.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

func (e *DuplicateEmailError) Is(target error) bool { return target == ErrDuplicateEmail }
