package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

const interviewColumns = `id, candidate_id, hr_id, job_title, job_description, tech_stack, status,
	question_source, questions, overall_score, overall_feedback, evaluated_by, evaluated_at,
	scheduled_at, started_at, completed_at, created_at, updated_at`

const responseColumns = `interview_id, question_id, answer_text, submitted_at, manual_score,
	manual_feedback, scored_by, scored_at, ai_score, ai_feedback, ai_evaluated_at`

func scanInterview(row pgx.Row) (*types.Interview, error) {
	var iv types.Interview
	var status string
	var questions []byte
	var overallScore *float64
	var overallFeedback *string
	var evaluatedBy *uuid.UUID
	var evaluatedAt *time.Time

	err := row.Scan(&iv.ID, &iv.CandidateID, &iv.HRID, &iv.JobTitle, &iv.JobDescription, &iv.TechStack, &status,
		&iv.QuestionSource, &questions, &overallScore, &overallFeedback, &evaluatedBy, &evaluatedAt,
		&iv.ScheduledAt, &iv.StartedAt, &iv.CompletedAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	iv.Status = types.InterviewStatus(status)
	if len(iv.TechStack) == 0 {
		iv.TechStack = nil
	}
	if err := json.Unmarshal(questions, &iv.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	if evaluatedBy != nil && evaluatedAt != nil && overallScore != nil {
		iv.Evaluation = &types.Evaluation{
			OverallScore: *overallScore,
			EvaluatedBy:  *evaluatedBy,
			EvaluatedAt:  *evaluatedAt,
		}
		if overallFeedback != nil {
			iv.Evaluation.OverallFeedback = *overallFeedback
		}
	}
	iv.Responses = map[string]*types.Response{}
	return &iv, nil
}

// CreateInterview inserts an interview and any responses it already carries.
func (r *repo) CreateInterview(ctx context.Context, iv *types.Interview) error {
	questions, err := json.Marshal(iv.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	techStack := iv.TechStack
	if techStack == nil {
		techStack = []string{}
	}
	_, err = r.q.Exec(ctx,
		`INSERT INTO interviews (id, candidate_id, hr_id, job_title, job_description, tech_stack, status,
		                         question_source, questions, scheduled_at, started_at, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		iv.ID, iv.CandidateID, iv.HRID, iv.JobTitle, iv.JobDescription, techStack, string(iv.Status),
		iv.QuestionSource, questions, iv.ScheduledAt, iv.StartedAt, iv.CompletedAt, iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create interview: %w", err)
	}
	for _, resp := range iv.Responses {
		if _, err := r.InsertResponse(ctx, iv.ID, resp); err != nil {
			return err
		}
	}
	if iv.Evaluation != nil {
		return r.SetEvaluation(ctx, iv.ID, iv.Evaluation)
	}
	return nil
}

func (r *repo) getInterview(ctx context.Context, query string, id uuid.UUID) (*types.Interview, error) {
	iv, err := scanInterview(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	if err := r.loadResponses(ctx, []*types.Interview{iv}); err != nil {
		return nil, err
	}
	return iv, nil
}

// GetInterview retrieves an interview with its responses
func (r *repo) GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	return r.getInterview(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id)
}

// LockInterview reads an interview with FOR UPDATE on the interview row.
func (r *repo) LockInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	return r.getInterview(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1 FOR UPDATE`, id)
}

// ListInterviews returns matching interviews, newest first.
func (r *repo) ListInterviews(ctx context.Context, f types.InterviewFilter) ([]*types.Interview, error) {
	var w filter
	if f.CandidateID != nil {
		w.add("candidate_id = $%d", *f.CandidateID)
	}
	if f.HRID != nil {
		w.add("hr_id = $%d", *f.HRID)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}

	rows, err := r.q.Query(ctx, `SELECT `+interviewColumns+` FROM interviews`+w.where()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	var ivs []*types.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		ivs = append(ivs, iv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}

	if err := r.loadResponses(ctx, ivs); err != nil {
		return nil, err
	}
	return ivs, nil
}

// loadResponses fills the Responses map of every interview in ivs with one query.
func (r *repo) loadResponses(ctx context.Context, ivs []*types.Interview) error {
	if len(ivs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*types.Interview, len(ivs))
	ids := make([]string, len(ivs))
	for i, iv := range ivs {
		byID[iv.ID] = iv
		ids[i] = iv.ID.String()
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+responseColumns+` FROM interview_responses WHERE interview_id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ivID uuid.UUID
		var resp types.Response
		if err := rows.Scan(&ivID, &resp.QuestionID, &resp.AnswerText, &resp.SubmittedAt, &resp.ManualScore,
			&resp.ManualFeedback, &resp.ScoredBy, &resp.ScoredAt, &resp.AIScore, &resp.AIFeedback, &resp.AIEvaluatedAt); err != nil {
			return fmt.Errorf("failed to scan response: %w", err)
		}
		byID[ivID].Responses[resp.QuestionID] = &resp
	}
	return rows.Err()
}

// SwapInterviewStatus moves an interview from expected to next, stamping
// started_at or completed_at on the matching transitions.
func (r *repo) SwapInterviewStatus(ctx context.Context, id uuid.UUID, expected, next types.InterviewStatus, at time.Time) (bool, error) {
	var started, completed *time.Time
	switch next {
	case types.InterviewInProgress:
		started = &at
	case types.InterviewCompleted:
		completed = &at
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE interviews SET status = $3, updated_at = $4,
		     started_at = COALESCE($5, started_at),
		     completed_at = COALESCE($6, completed_at)
		 WHERE id = $1 AND status = $2`,
		id, string(expected), string(next), at, started, completed,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update interview status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertResponse stores an answer unless the question already has one.
func (r *repo) InsertResponse(ctx context.Context, interviewID uuid.UUID, resp *types.Response) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO interview_responses (interview_id, question_id, answer_text, submitted_at,
		                                  manual_score, manual_feedback, scored_by, scored_at,
		                                  ai_score, ai_feedback, ai_evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (interview_id, question_id) DO NOTHING`,
		interviewID, resp.QuestionID, resp.AnswerText, resp.SubmittedAt,
		resp.ManualScore, resp.ManualFeedback, resp.ScoredBy, resp.ScoredAt,
		resp.AIScore, resp.AIFeedback, resp.AIEvaluatedAt,
	)
	if err != nil {
		if _, ok := pgError(err, codeForeignKeyViolation); ok {
			return false, &workflow.NotFoundError{Entity: workflow.EntityInterview, ID: interviewID.String()}
		}
		return false, fmt.Errorf("failed to insert response: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetAIScore writes only the ai_* columns of a response.
func (r *repo) SetAIScore(ctx context.Context, interviewID uuid.UUID, questionID string, score float64, feedback string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE interview_responses SET ai_score = $3, ai_feedback = $4, ai_evaluated_at = $5
		 WHERE interview_id = $1 AND question_id = $2`,
		interviewID, questionID, score, feedback, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set ai score: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetManualScore writes only the manual_* columns of a response.
func (r *repo) SetManualScore(ctx context.Context, interviewID uuid.UUID, questionID string, score float64, feedback string, by uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE interview_responses SET manual_score = $3, manual_feedback = $4, scored_by = $5, scored_at = $6
		 WHERE interview_id = $1 AND question_id = $2`,
		interviewID, questionID, score, feedback, by, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set manual score: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetEvaluation records the overall evaluation of an interview.
func (r *repo) SetEvaluation(ctx context.Context, interviewID uuid.UUID, eval *types.Evaluation) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE interviews SET overall_score = $2, overall_feedback = $3, evaluated_by = $4,
		     evaluated_at = $5, updated_at = $5
		 WHERE id = $1`,
		interviewID, eval.OverallScore, nullIfEmpty(eval.OverallFeedback), eval.EvaluatedBy, eval.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &workflow.NotFoundError{Entity: workflow.EntityInterview, ID: interviewID.String()}
	}
	return nil
}
