package types

import (
	"time"

	"github.com/google/uuid"
)

// InterviewStatus is a monotonically advancing lifecycle status.
type InterviewStatus string

const (
	InterviewScheduled          InterviewStatus = "scheduled"
	InterviewQuestionsGenerated InterviewStatus = "questions_generated"
	InterviewInProgress         InterviewStatus = "in_progress"
	InterviewCompleted          InterviewStatus = "completed"
	InterviewEvaluated          InterviewStatus = "evaluated"
)

var interviewRank = map[InterviewStatus]int{
	InterviewScheduled:          0,
	InterviewQuestionsGenerated: 1,
	InterviewInProgress:         2,
	InterviewCompleted:          3,
	InterviewEvaluated:          4,
}

// interviewEdges lists the only forward transitions the lifecycle allows.
var interviewEdges = map[InterviewStatus][]InterviewStatus{
	InterviewScheduled:          {InterviewQuestionsGenerated},
	InterviewQuestionsGenerated: {InterviewInProgress},
	InterviewInProgress:         {InterviewCompleted, InterviewEvaluated},
	InterviewCompleted:          {InterviewEvaluated},
}

// CanTransition reports whether from -> to is an edge of the interview lifecycle.
func CanTransition(from, to InterviewStatus) bool {
	for _, next := range interviewEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reached reports whether s is at or past target in the lifecycle.
func (s InterviewStatus) Reached(target InterviewStatus) bool {
	return interviewRank[s] >= interviewRank[target]
}

// AcceptsAnswers reports whether responses may be submitted in status s.
func (s InterviewStatus) AcceptsAnswers() bool {
	return s == InterviewQuestionsGenerated || s == InterviewInProgress
}

// Question is one interview question. Order within an interview is presentation order.
type Question struct {
	ID         string `json:"id" yaml:"id"`
	Text       string `json:"text" yaml:"text"`
	Category   string `json:"category" yaml:"category"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
}

// Response is a candidate's answer to one question plus its manual and AI scores.
// Manual and AI fields are written independently and never overwrite each other.
type Response struct {
	QuestionID     string     `json:"question_id"`
	AnswerText     string     `json:"answer_text"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	ManualScore    *float64   `json:"manual_score,omitempty"`
	ManualFeedback string     `json:"manual_feedback,omitempty"`
	ScoredBy       *uuid.UUID `json:"scored_by,omitempty"`
	ScoredAt       *time.Time `json:"scored_at,omitempty"`
	AIScore        *float64   `json:"ai_score,omitempty"`
	AIFeedback     string     `json:"ai_feedback,omitempty"`
	AIEvaluatedAt  *time.Time `json:"ai_evaluated_at,omitempty"`
}

// EffectiveScore prefers the manual score over the AI score.
func (r *Response) EffectiveScore() *float64 {
	if r.ManualScore != nil {
		return r.ManualScore
	}
	return r.AIScore
}

// Evaluation is the overall result of an interview.
type Evaluation struct {
	OverallScore    float64   `json:"overall_score"`
	OverallFeedback string    `json:"overall_feedback,omitempty"`
	EvaluatedBy     uuid.UUID `json:"evaluated_by"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// Interview is the aggregate root of one interview session. CandidateID and
// HRID never change after creation; Questions never change after generation.
type Interview struct {
	ID             uuid.UUID            `json:"id"`
	CandidateID    uuid.UUID            `json:"candidate_id"`
	HRID           uuid.UUID            `json:"hr_id"`
	JobTitle       string               `json:"job_title"`
	JobDescription string               `json:"job_description"`
	TechStack      []string             `json:"tech_stack,omitempty"`
	Status         InterviewStatus      `json:"status"`
	QuestionSource string               `json:"question_source"`
	Questions      []Question           `json:"questions"`
	Responses      map[string]*Response `json:"responses"`
	Evaluation     *Evaluation          `json:"evaluation,omitempty"`
	ScheduledAt    *time.Time           `json:"scheduled_at,omitempty"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Question sources.
const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

// HasQuestion reports whether id is one of the interview's questions.
func (iv *Interview) HasQuestion(id string) bool {
	for _, q := range iv.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Question returns the question with the given id.
func (iv *Interview) Question(id string) (Question, bool) {
	for _, q := range iv.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// AllAnswered reports whether every question has a response.
func (iv *Interview) AllAnswered() bool {
	if len(iv.Questions) == 0 {
		return false
	}
	for _, q := range iv.Questions {
		if _, ok := iv.Responses[q.ID]; !ok {
			return false
		}
	}
	return true
}

// AllScored reports whether every response carries a manual or AI score.
func (iv *Interview) AllScored() bool {
	if len(iv.Responses) == 0 {
		return false
	}
	for _, r := range iv.Responses {
		if r.EffectiveScore() == nil {
			return false
		}
	}
	return true
}

// MeanScore averages the effective score of every scored response.
func (iv *Interview) MeanScore() (float64, bool) {
	var sum float64
	var n int
	for _, r := range iv.Responses {
		if s := r.EffectiveScore(); s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Redacted returns a copy without any scores or evaluation, for candidates
// viewing an interview that has not been evaluated yet.
func (iv *Interview) Redacted() *Interview {
	c := iv.Clone()
	c.Evaluation = nil
	for _, r := range c.Responses {
		r.ManualScore, r.ManualFeedback, r.ScoredBy, r.ScoredAt = nil, "", nil, nil
		r.AIScore, r.AIFeedback, r.AIEvaluatedAt = nil, "", nil
	}
	return c
}

// Clone returns a deep copy of the interview.
func (iv *Interview) Clone() *Interview {
	if iv == nil {
		return nil
	}
	c := *iv
	c.TechStack = append([]string(nil), iv.TechStack...)
	c.Questions = append([]Question(nil), iv.Questions...)
	c.Responses = make(map[string]*Response, len(iv.Responses))
	for k, r := range iv.Responses {
		rc := *r
		c.Responses[k] = &rc
	}
	if iv.Evaluation != nil {
		e := *iv.Evaluation
		c.Evaluation = &e
	}
	return &c
}

// InterviewFilter narrows interview listings. Zero values match everything.
type InterviewFilter struct {
	CandidateID *uuid.UUID
	HRID        *uuid.UUID
	Status      InterviewStatus
}

// Matches reports whether iv satisfies the filter.
func (f InterviewFilter) Matches(iv *Interview) bool {
	if f.CandidateID != nil && iv.CandidateID != *f.CandidateID {
		return false
	}
	if f.HRID != nil && iv.HRID != *f.HRID {
		return false
	}
	if f.Status != "" && iv.Status != f.Status {
		return false
	}
	return true
}
