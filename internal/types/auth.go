package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RegisterRequest creates an HR or candidate account. Admin accounts are seeded, not registered.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,oneof=hr candidate"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the authenticated actor and its bearer token.
type LoginResponse struct {
	Actor *Actor `json:"actor"`
	Token string `json:"token"`
}

// Validate validates the RegisterRequest using the validator.
func (r *RegisterRequest) Validate() error {
	return validator.New().Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	return validator.New().Struct(r)
}

// HRProfileRequest completes or updates an HR profile.
type HRProfileRequest struct {
	YearsOfExperience *int    `json:"years_of_experience" validate:"required,min=0,max=60"`
	ResumeText        *string `json:"resume_text,omitempty" validate:"omitempty,min=1"`
}

// ResumeTextRequest submits resume text directly instead of a file upload.
type ResumeTextRequest struct {
	ResumeText string `json:"resume_text" validate:"required,min=1"`
}

// ApplyRequest opens an HR application to an admin.
type ApplyRequest struct {
	AdminID uuid.UUID `json:"admin_id" validate:"required"`
	Message string    `json:"message,omitempty" validate:"max=2000"`
}

// InviteHRRequest opens an admin invitation to an HR actor.
type InviteHRRequest struct {
	HRID    uuid.UUID `json:"hr_id" validate:"required"`
	Message string    `json:"message,omitempty" validate:"max=2000"`
}

// AssignRequest assigns a candidate to a mapped HR actor.
type AssignRequest struct {
	CandidateID uuid.UUID `json:"candidate_id" validate:"required"`
	HRID        uuid.UUID `json:"hr_id" validate:"required"`
}

// InviteCandidateRequest is an HR message inviting a candidate.
type InviteCandidateRequest struct {
	Subject string `json:"subject,omitempty" validate:"max=200"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

// ScheduleRequest schedules an interview for an assigned candidate.
type ScheduleRequest struct {
	CandidateID    uuid.UUID  `json:"candidate_id" validate:"required"`
	JobTitle       string     `json:"job_title" validate:"required,min=1,max=200"`
	JobDescription string     `json:"job_description" validate:"required,min=1"`
	TechStack      []string   `json:"tech_stack,omitempty" validate:"max=20,dive,min=1,max=50"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	QuestionCount  int        `json:"question_count,omitempty" validate:"omitempty,min=1,max=10"`
}

// AnswerInput is one answer within an answer submission.
type AnswerInput struct {
	QuestionID string `json:"question_id" validate:"required"`
	AnswerText string `json:"answer_text" validate:"required,min=1"`
}

// SubmitAnswersRequest submits one or more answers atomically.
type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// AIEvaluationRequest selects which responses to evaluate; empty means every unscored one.
type AIEvaluationRequest struct {
	QuestionIDs []string `json:"question_ids,omitempty"`
}

// ManualScoreRequest records a manual score for one response.
type ManualScoreRequest struct {
	Score    *float64 `json:"score" validate:"required,min=0,max=5"`
	Feedback string   `json:"feedback,omitempty" validate:"max=5000"`
}

// ResponseScoreInput is a manual score carried within an evaluation submission.
type ResponseScoreInput struct {
	QuestionID string   `json:"question_id" validate:"required"`
	Score      *float64 `json:"score" validate:"required,min=0,max=5"`
	Feedback   string   `json:"feedback,omitempty" validate:"max=5000"`
}

// EvaluationRequest records the overall evaluation of an interview.
type EvaluationRequest struct {
	OverallScore    *float64             `json:"overall_score,omitempty" validate:"omitempty,min=0,max=5"`
	OverallFeedback string               `json:"overall_feedback,omitempty" validate:"max=10000"`
	ResponseScores  []ResponseScoreInput `json:"response_scores,omitempty" validate:"dive"`
}

// MarkReadRequest marks inbox messages read.
type MarkReadRequest struct {
	MessageIDs []uuid.UUID `json:"message_ids" validate:"required,min=1"`
}
