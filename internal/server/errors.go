// Package server provides the HTTP REST API for the hiring pipeline.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/enrich"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

func (e *ErrEmailAlreadyExists) Is(target error) bool { return target == workflow.ErrDuplicateEmail }

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	status, _ := classify(err)
	return status
}

// classify maps err to a status code and a stable machine-readable code.
func classify(err error) (int, string) {
	var (
		emailExists *ErrEmailAlreadyExists
		badCreds    *ErrInvalidCredentials
		invalid     *ErrValidation
		unsupported *enrich.UnsupportedFileError
		tooLarge    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType, "unsupported_file"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.As(err, &badCreds):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.As(err, &emailExists), errors.Is(err, workflow.ErrDuplicateEmail):
		return http.StatusConflict, "email_exists"
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, workflow.ErrAlreadyAnswered):
		return http.StatusConflict, "already_answered"
	case errors.Is(err, workflow.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, workflow.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, workflow.ErrOracleUnavailable):
		return http.StatusServiceUnavailable, "oracle_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// NewErrorResponse builds the reply body for err. Internal errors are not
// echoed to the client.
func NewErrorResponse(err error) (int, ErrorResponse) {
	status, code := classify(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		resp.Error = "internal server error"
		return status, resp
	}
	resp.Details = errorDetails(err)
	return status, resp
}

func errorDetails(err error) map[string]any {
	var (
		notFound  *workflow.NotFoundError
		state     *workflow.InvalidStateError
		conflict  *workflow.ConflictError
		answered  *workflow.AlreadyAnsweredError
		forbidden *workflow.ForbiddenError
		oracleErr *oracle.UnavailableError
		invalid   *ErrValidation
	)
	details := map[string]any{}
	switch {
	case errors.As(err, &notFound):
		details["entity"] = notFound.Entity
		details["id"] = notFound.ID
	case errors.As(err, &state):
		details["entity"] = state.Entity
		details["id"] = state.ID
		putIf(details, "expected", state.Expected)
		putIf(details, "actual", state.Actual)
		putIf(details, "reason", state.Reason)
	case errors.As(err, &conflict):
		details["entity"] = conflict.Entity
		details["id"] = conflict.ID
		putIf(details, "expected", conflict.Expected)
		putIf(details, "actual", conflict.Actual)
	case errors.As(err, &answered):
		details["interview_id"] = answered.InterviewID
		details["question_id"] = answered.QuestionID
	case errors.As(err, &forbidden):
		details["action"] = forbidden.Action
		putIf(details, "reason", forbidden.Reason)
	case errors.As(err, &oracleErr):
		details["operation"] = oracleErr.Op
	case errors.As(err, &invalid):
		putIf(details, "field", invalid.Field)
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func putIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
