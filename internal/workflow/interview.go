package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/enrich"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"golang.org/x/sync/errgroup"
)

const maxQuestionCount = 10

// ScheduleInput describes the interview an HR wants to schedule.
type ScheduleInput struct {
	CandidateID    uuid.UUID
	JobTitle       string
	JobDescription string
	TechStack      []string
	ScheduledAt    *time.Time
	QuestionCount  int
}

// ScheduleInterview creates an interview for a candidate assigned to hrID and fills
// it with questions. When the oracle fails, times out or returns nothing
// usable, the default question set is used instead; scheduling never fails
// because of the oracle.
func (s *Service) ScheduleInterview(ctx context.Context, hrID uuid.UUID, in ScheduleInput) (*types.Interview, error) {
	dir := s.Directory()
	hr, err := dir.Get(ctx, hrID)
	if err != nil {
		return nil, err
	}
	if hr.Role != types.RoleHR {
		return nil, &ForbiddenError{ActorID: hrID.String(), Action: "schedule interviews"}
	}
	cand, err := dir.Get(ctx, in.CandidateID)
	if err != nil {
		return nil, err
	}
	if err := checkSchedulable(hr, cand); err != nil {
		return nil, err
	}

	count := in.QuestionCount
	if count <= 0 {
		count = s.questionCount
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}
	description := enrich.PlainText(in.JobDescription)

	// the oracle call happens outside the transaction so no lock is held while waiting on it
	questions, source := s.obtainQuestions(ctx, oracle.QuestionRequest{
		JobTitle:       strings.TrimSpace(in.JobTitle),
		JobDescription: description,
		TechStack:      in.TechStack,
		ResumeText:     cand.ResumeText,
		Count:          count,
	})
	if len(questions) == 0 {
		return nil, &InvalidStateError{Entity: EntityInterview, ID: in.CandidateID.String(), Reason: "no questions available for this job"}
	}

	var iv *types.Interview
	err = s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		hr, err := dir.Lock(ctx, hrID)
		if err != nil {
			return err
		}
		cand, err := dir.Lock(ctx, in.CandidateID)
		if err != nil {
			return err
		}
		// re-checked on locked rows: an unmap may have committed while the oracle ran
		if err := checkSchedulable(hr, cand); err != nil {
			return err
		}

		now := s.now()
		iv = &types.Interview{
			ID:             uuid.New(),
			CandidateID:    cand.ID,
			HRID:           hr.ID,
			JobTitle:       strings.TrimSpace(in.JobTitle),
			JobDescription: description,
			TechStack:      in.TechStack,
			Status:         types.InterviewScheduled,
			Responses:      map[string]*types.Response{},
			ScheduledAt:    in.ScheduledAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := advance(iv, types.InterviewQuestionsGenerated); err != nil {
			return err
		}
		iv.Questions = questions
		iv.QuestionSource = source
		if err := r.CreateInterview(ctx, iv); err != nil {
			return fmt.Errorf("failed to create interview: %w", err)
		}

		body := fmt.Sprintf("%s scheduled an interview for %s.", displayName(hr), iv.JobTitle)
		if iv.ScheduledAt != nil {
			body += " Scheduled for " + iv.ScheduledAt.UTC().Format(time.RFC1123) + "."
		}
		out.add(&hrID, cand.ID, types.MessageInterviewScheduled, "Interview scheduled", body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("interview scheduled", "interview_id", iv.ID, "candidate_id", iv.CandidateID, "hr_id", hrID,
		"questions", len(iv.Questions), "source", source)
	return iv, nil
}

func checkSchedulable(hr, cand *types.Actor) error {
	if hr.Role != types.RoleHR {
		return &InvalidStateError{Entity: EntityActor, ID: hr.ID.String(), Reason: "not an HR actor"}
	}
	if err := requireStatus(hr, types.HRMapped); err != nil {
		return err
	}
	if cand.Role != types.RoleCandidate {
		return &InvalidStateError{Entity: EntityActor, ID: cand.ID.String(), Reason: "not a candidate"}
	}
	if err := requireStatus(cand, types.CandidateAssigned); err != nil {
		return err
	}
	if cand.AssignedHRID == nil || *cand.AssignedHRID != hr.ID {
		return &InvalidStateError{Entity: EntityActor, ID: cand.ID.String(), Reason: "candidate is not assigned to this HR"}
	}
	return nil
}

func (s *Service) obtainQuestions(ctx context.Context, req oracle.QuestionRequest) ([]types.Question, string) {
	questions, err := s.oracle.GenerateQuestions(ctx, req)
	if err == nil && len(questions) > 0 {
		return questions, types.SourceOracle
	}
	if err == nil {
		err = errors.New("oracle returned no questions")
	}
	s.logger.Warn("falling back to default questions", "job_title", req.JobTitle, "error", err)
	return s.questions.Select(req.JobTitle, req.TechStack, req.Count), types.SourceFallback
}

// advance moves iv along one lifecycle edge in memory.
func advance(iv *types.Interview, to types.InterviewStatus) error {
	if !types.CanTransition(iv.Status, to) {
		return &InvalidStateError{Entity: EntityInterview, ID: iv.ID.String(), Expected: "predecessor of " + string(to), Actual: string(iv.Status)}
	}
	iv.Status = to
	return nil
}

// swapInterview persists a lifecycle edge by compare-and-swap.
func (s *Service) swapInterview(ctx context.Context, r Repository, iv *types.Interview, to types.InterviewStatus) error {
	from := iv.Status
	if err := advance(iv, to); err != nil {
		return err
	}
	at := s.now()
	ok, err := r.SwapInterviewStatus(ctx, iv.ID, from, to, at)
	if err != nil {
		return fmt.Errorf("failed to update interview %s: %w", iv.ID, err)
	}
	if !ok {
		current, err := r.GetInterview(ctx, iv.ID)
		if err != nil {
			return err
		}
		actual := "missing"
		if current != nil {
			actual = string(current.Status)
		}
		return &ConflictError{Entity: EntityInterview, ID: iv.ID.String(), Expected: string(from), Actual: actual}
	}
	iv.UpdatedAt = at
	switch to {
	case types.InterviewInProgress:
		iv.StartedAt = &at
	case types.InterviewCompleted:
		iv.CompletedAt = &at
	}
	return nil
}

func lockInterview(ctx context.Context, r Repository, id uuid.UUID) (*types.Interview, error) {
	iv, err := r.LockInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, &NotFoundError{Entity: EntityInterview, ID: id.String()}
	}
	return iv, nil
}

// StartInterview moves an interview from questions_generated to in_progress.
// Starting an interview already in progress returns it unchanged.
func (s *Service) StartInterview(ctx context.Context, interviewID, candidateID uuid.UUID) (*types.Interview, error) {
	var iv *types.Interview
	err := s.atomic(ctx, func(r Repository, _ *Directory, _ *outbox) error {
		var err error
		if iv, err = lockInterview(ctx, r, interviewID); err != nil {
			return err
		}
		if iv.CandidateID != candidateID {
			return &ForbiddenError{ActorID: candidateID.String(), Action: "start interview " + interviewID.String(), Reason: "not the interview candidate"}
		}
		if iv.Status == types.InterviewInProgress {
			return nil
		}
		return s.swapInterview(ctx, r, iv, types.InterviewInProgress)
	})
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// SubmitAnswer stores a single answer. See SubmitAnswers.
func (s *Service) SubmitAnswer(ctx context.Context, interviewID, candidateID uuid.UUID, questionID, answer string) (*types.Interview, error) {
	return s.SubmitAnswers(ctx, interviewID, candidateID, []types.AnswerInput{{QuestionID: questionID, AnswerText: answer}})
}

// SubmitAnswers stores answers atomically. The first accepted answer moves
// the interview to in_progress; answering the last open question moves it to
// completed. A question that already has a response, or appears twice in
// the batch, fails the whole call with AlreadyAnsweredError and stores nothing.
func (s *Service) SubmitAnswers(ctx context.Context, interviewID, candidateID uuid.UUID, answers []types.AnswerInput) (*types.Interview, error) {
	if len(answers) == 0 {
		return nil, &InvalidStateError{Entity: EntityInterview, ID: interviewID.String(), Reason: "no answers submitted"}
	}

	var iv *types.Interview
	err := s.atomic(ctx, func(r Repository, _ *Directory, _ *outbox) error {
		var err error
		if iv, err = lockInterview(ctx, r, interviewID); err != nil {
			return err
		}
		if iv.CandidateID != candidateID {
			return &ForbiddenError{ActorID: candidateID.String(), Action: "answer interview " + interviewID.String(), Reason: "not the interview candidate"}
		}
		if !iv.Status.AcceptsAnswers() {
			return &InvalidStateError{
				Entity: EntityInterview, ID: interviewID.String(),
				Expected: string(types.InterviewQuestionsGenerated) + "|" + string(types.InterviewInProgress),
				Actual:   string(iv.Status),
			}
		}

		seen := make(map[string]bool, len(answers))
		for _, a := range answers {
			if !iv.HasQuestion(a.QuestionID) {
				return &NotFoundError{Entity: EntityQuestion, ID: a.QuestionID}
			}
			if strings.TrimSpace(a.AnswerText) == "" {
				return &InvalidStateError{Entity: EntityQuestion, ID: a.QuestionID, Reason: "answer is empty"}
			}
			if seen[a.QuestionID] {
				return &AlreadyAnsweredError{InterviewID: interviewID.String(), QuestionID: a.QuestionID}
			}
			seen[a.QuestionID] = true
		}

		now := s.now()
		for _, a := range answers {
			resp := &types.Response{QuestionID: a.QuestionID, AnswerText: a.AnswerText, SubmittedAt: now}
			ok, err := r.InsertResponse(ctx, iv.ID, resp)
			if err != nil {
				return fmt.Errorf("failed to store response: %w", err)
			}
			if !ok {
				return &AlreadyAnsweredError{InterviewID: interviewID.String(), QuestionID: a.QuestionID}
			}
			iv.Responses[a.QuestionID] = resp
		}

		if iv.Status == types.InterviewQuestionsGenerated {
			if err := s.swapInterview(ctx, r, iv, types.InterviewInProgress); err != nil {
				return err
			}
		}
		if iv.AllAnswered() {
			return s.swapInterview(ctx, r, iv, types.InterviewCompleted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("answers submitted", "interview_id", interviewID, "count", len(answers), "status", string(iv.Status))
	return iv, nil
}

// ItemResult is the outcome of evaluating one response with the oracle.
type ItemResult struct {
	QuestionID string   `json:"question_id"`
	AIScore    *float64 `json:"ai_score,omitempty"`
	AIFeedback string   `json:"ai_feedback,omitempty"`
	Error      string   `json:"error,omitempty"`
	err        error
}

// Err returns the failure of this item, if any.
func (i ItemResult) Err() error { return i.err }

// EvaluationReport collects per-item outcomes of an oracle evaluation run.
type EvaluationReport struct {
	InterviewID uuid.UUID    `json:"interview_id"`
	Items       []ItemResult `json:"items"`
	Evaluated   int          `json:"evaluated"`
	Failed      int          `json:"failed"`
}

// EvaluateWithOracle scores responses with the oracle. With no question ids
// it evaluates every answered question that has no AI score yet; with ids it
// re-evaluates exactly those. Only ai_score and ai_feedback are written.
// Oracle failures are reported per item and leave earlier scores untouched.
func (s *Service) EvaluateWithOracle(ctx context.Context, interviewID, actingID uuid.UUID, questionIDs []string) (*EvaluationReport, error) {
	iv, err := s.interviewForReviewer(ctx, interviewID, actingID, "evaluate")
	if err != nil {
		return nil, err
	}
	if !iv.Status.Reached(types.InterviewInProgress) {
		return nil, &InvalidStateError{Entity: EntityInterview, ID: interviewID.String(), Expected: string(types.InterviewInProgress), Actual: string(iv.Status)}
	}

	var targets []string
	if len(questionIDs) == 0 {
		for _, q := range iv.Questions {
			if resp, ok := iv.Responses[q.ID]; ok && resp.AIScore == nil {
				targets = append(targets, q.ID)
			}
		}
	} else {
		for _, id := range questionIDs {
			if !iv.HasQuestion(id) {
				return nil, &NotFoundError{Entity: EntityQuestion, ID: id}
			}
			if _, ok := iv.Responses[id]; !ok {
				return nil, &NotFoundError{Entity: EntityResponse, ID: id}
			}
			targets = append(targets, id)
		}
	}

	report := &EvaluationReport{InterviewID: iv.ID, Items: make([]ItemResult, len(targets))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.evalConcurrency)
	for i, qid := range targets {
		g.Go(func() error {
			// each goroutine owns one slot; only storage failures abort the run
			item, err := s.evaluateOne(gctx, iv, qid)
			report.Items[i] = item
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, item := range report.Items {
		if item.err != nil {
			report.Failed++
		} else {
			report.Evaluated++
		}
	}
	s.logger.Info("oracle evaluation finished", "interview_id", interviewID, "evaluated", report.Evaluated, "failed", report.Failed)
	return report, nil
}

// evaluateOne scores a single response. Oracle and answer problems land in
// the item; the returned error is reserved for storage failures.
func (s *Service) evaluateOne(ctx context.Context, iv *types.Interview, questionID string) (ItemResult, error) {
	item := ItemResult{QuestionID: questionID}
	fail := func(err error) (ItemResult, error) {
		item.err = err
		item.Error = err.Error()
		return item, nil
	}

	q, _ := iv.Question(questionID)
	resp := iv.Responses[questionID]
	if len(strings.TrimSpace(resp.AnswerText)) < minAnswerLength {
		return fail(&InvalidStateError{Entity: EntityResponse, ID: questionID, Reason: fmt.Sprintf("answer shorter than %d characters", minAnswerLength)})
	}

	score, err := s.oracle.EvaluateAnswer(ctx, oracle.AnswerRequest{
		Question:       q,
		Answer:         resp.AnswerText,
		JobTitle:       iv.JobTitle,
		JobDescription: iv.JobDescription,
	})
	if err != nil {
		if !errors.Is(err, ErrOracleUnavailable) {
			err = &oracle.UnavailableError{Op: "evaluate_answer", Cause: err}
		}
		return fail(err)
	}

	ok, err := s.store.SetAIScore(ctx, iv.ID, questionID, score.Score, score.Feedback, s.now())
	if err != nil {
		return item, fmt.Errorf("failed to store AI score: %w", err)
	}
	if !ok {
		return fail(&NotFoundError{Entity: EntityResponse, ID: questionID})
	}
	item.AIScore = &score.Score
	item.AIFeedback = score.Feedback
	return item, nil
}

// RecordManualScore stores a reviewer's score for one response. It is
// accepted in any status once the response exists and never touches AI fields.
func (s *Service) RecordManualScore(ctx context.Context, interviewID, actingID uuid.UUID, questionID string, score float64, feedback string) (*types.Interview, error) {
	if score < 0 || score > 5 {
		return nil, &InvalidStateError{Entity: EntityResponse, ID: questionID, Reason: "score must be between 0 and 5"}
	}
	iv, err := s.interviewForReviewer(ctx, interviewID, actingID, "score")
	if err != nil {
		return nil, err
	}
	if _, ok := iv.Responses[questionID]; !ok {
		return nil, &NotFoundError{Entity: EntityResponse, ID: questionID}
	}
	ok, err := s.store.SetManualScore(ctx, interviewID, questionID, score, feedback, actingID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to store manual score: %w", err)
	}
	if !ok {
		return nil, &NotFoundError{Entity: EntityResponse, ID: questionID}
	}
	return s.store.GetInterview(ctx, interviewID)
}

// EvaluationInput is an overall evaluation with optional per-response scores.
type EvaluationInput struct {
	OverallScore    *float64
	OverallFeedback string
	ResponseScores  []types.ResponseScoreInput
}

// SubmitEvaluation records the overall evaluation and moves the interview to
// evaluated. Without an explicit overall score the mean of the per-response
// scores is used, manual scores taking precedence over AI ones. Submitting
// again on an evaluated interview overwrites the evaluation.
func (s *Service) SubmitEvaluation(ctx context.Context, interviewID, actingID uuid.UUID, in EvaluationInput) (*types.Interview, error) {
	if in.OverallScore != nil && (*in.OverallScore < 0 || *in.OverallScore > 5) {
		return nil, &InvalidStateError{Entity: EntityInterview, ID: interviewID.String(), Reason: "overall score must be between 0 and 5"}
	}

	var iv *types.Interview
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		var err error
		if iv, err = lockInterview(ctx, r, interviewID); err != nil {
			return err
		}
		if err := s.authorizeReviewer(ctx, dir, iv, actingID, "evaluate"); err != nil {
			return err
		}
		switch iv.Status {
		case types.InterviewInProgress, types.InterviewCompleted, types.InterviewEvaluated:
		default:
			return &InvalidStateError{
				Entity: EntityInterview, ID: interviewID.String(),
				Expected: string(types.InterviewInProgress) + "|" + string(types.InterviewCompleted),
				Actual:   string(iv.Status),
			}
		}

		now := s.now()
		for _, rs := range in.ResponseScores {
			resp, ok := iv.Responses[rs.QuestionID]
			if !ok {
				return &NotFoundError{Entity: EntityResponse, ID: rs.QuestionID}
			}
			if rs.Score == nil || *rs.Score < 0 || *rs.Score > 5 {
				return &InvalidStateError{Entity: EntityResponse, ID: rs.QuestionID, Reason: "score must be between 0 and 5"}
			}
			if _, err := r.SetManualScore(ctx, iv.ID, rs.QuestionID, *rs.Score, rs.Feedback, actingID, now); err != nil {
				return fmt.Errorf("failed to store manual score: %w", err)
			}
			score := *rs.Score
			resp.ManualScore, resp.ManualFeedback = &score, rs.Feedback
		}

		overall := in.OverallScore
		if overall == nil {
			mean, ok := iv.MeanScore()
			if !ok {
				return &InvalidStateError{Entity: EntityInterview, ID: interviewID.String(), Reason: "no overall score given and no response is scored"}
			}
			overall = &mean
		}

		iv.Evaluation = &types.Evaluation{
			OverallScore:    *overall,
			OverallFeedback: in.OverallFeedback,
			EvaluatedBy:     actingID,
			EvaluatedAt:     now,
		}
		if err := r.SetEvaluation(ctx, iv.ID, iv.Evaluation); err != nil {
			return fmt.Errorf("failed to store evaluation: %w", err)
		}
		if iv.Status != types.InterviewEvaluated {
			if err := s.swapInterview(ctx, r, iv, types.InterviewEvaluated); err != nil {
				return err
			}
		}

		out.add(&actingID, iv.CandidateID, types.MessageInterviewEvaluated, "Interview evaluated",
			fmt.Sprintf("Your interview for %s has been evaluated.", iv.JobTitle))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("interview evaluated", "interview_id", interviewID, "overall", iv.Evaluation.OverallScore, "by", actingID)
	return iv, nil
}

// authorizeReviewer allows the interview's HR and any admin.
func (s *Service) authorizeReviewer(ctx context.Context, dir *Directory, iv *types.Interview, actingID uuid.UUID, action string) error {
	if iv.HRID == actingID {
		return nil
	}
	_, err := requireActor(ctx, dir, actingID, action+" interview "+iv.ID.String(), types.RoleAdmin)
	return err
}

func (s *Service) interviewForReviewer(ctx context.Context, interviewID, actingID uuid.UUID, action string) (*types.Interview, error) {
	iv, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, &NotFoundError{Entity: EntityInterview, ID: interviewID.String()}
	}
	if err := s.authorizeReviewer(ctx, s.Directory(), iv, actingID, action); err != nil {
		return nil, err
	}
	return iv, nil
}

// GetInterview returns an interview to its candidate, its HR or an admin.
// Candidates see no scores until the interview is evaluated.
func (s *Service) GetInterview(ctx context.Context, interviewID, actingID uuid.UUID) (*types.Interview, error) {
	iv, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, &NotFoundError{Entity: EntityInterview, ID: interviewID.String()}
	}
	if iv.CandidateID == actingID {
		if iv.Status != types.InterviewEvaluated {
			return iv.Redacted(), nil
		}
		return iv, nil
	}
	if err := s.authorizeReviewer(ctx, s.Directory(), iv, actingID, "view"); err != nil {
		return nil, &NotFoundError{Entity: EntityInterview, ID: interviewID.String()}
	}
	return iv, nil
}

// ListInterviews lists the interviews an actor takes part in; admins see all
// interviews matching filter.
func (s *Service) ListInterviews(ctx context.Context, actingID uuid.UUID, filter types.InterviewFilter) ([]*types.Interview, error) {
	actor, err := s.Directory().Get(ctx, actingID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case types.RoleCandidate:
		filter.CandidateID = &actor.ID
	case types.RoleHR:
		filter.HRID = &actor.ID
	}
	list, err := s.store.ListInterviews(ctx, filter)
	if err != nil {
		return nil, err
	}
	if actor.Role == types.RoleCandidate {
		for i, iv := range list {
			if iv.Status != types.InterviewEvaluated {
				list[i] = iv.Redacted()
			}
		}
	}
	return list, nil
}
