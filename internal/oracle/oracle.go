// Package oracle adapts the generative model into the two calls the interview
// workflow needs: producing a question set and scoring an answer.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// ErrUnavailable matches every oracle failure. Callers never distinguish
// transport errors, timeouts and malformed payloads.
var ErrUnavailable = errors.New("content oracle unavailable")

// UnavailableError records which oracle call failed and why.
type UnavailableError struct {
	Op    string
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("content oracle unavailable during %s: %v", e.Op, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(op string, cause error) error {
	return &UnavailableError{Op: op, Cause: cause}
}

// QuestionRequest is the job context used to generate questions.
type QuestionRequest struct {
	JobTitle       string
	JobDescription string
	TechStack      []string
	ResumeText     string
	Count          int
}

// AnswerRequest is one answer to score, with optional job context.
type AnswerRequest struct {
	Question       types.Question
	Answer         string
	JobTitle       string
	JobDescription string
}

// Score is the oracle's verdict on one answer. Score is within [0, 5].
type Score struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Oracle generates interview questions and evaluates answers.
// Implementations must honor ctx cancellation.
type Oracle interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]types.Question, error)
	EvaluateAnswer(ctx context.Context, req AnswerRequest) (*Score, error)
}

// Disabled is an Oracle that always reports itself unavailable. It is used
// when no model credentials are configured so scheduling runs on the fallback set.
type Disabled struct{}

func (Disabled) GenerateQuestions(context.Context, QuestionRequest) ([]types.Question, error) {
	return nil, unavailable("generate_questions", errors.New("no model configured"))
}

func (Disabled) EvaluateAnswer(context.Context, AnswerRequest) (*Score, error) {
	return nil, unavailable("evaluate_answer", errors.New("no model configured"))
}
