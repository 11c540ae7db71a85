package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

// handleScheduleInterview creates an interview and fills it with questions,
// falling back to the question bank when the oracle is unavailable.
func (s *Server) handleScheduleInterview(w http.ResponseWriter, r *http.Request) {
	var req types.ScheduleRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	iv, err := s.workflow.ScheduleInterview(r.Context(), caller(r), workflow.ScheduleInput{
		CandidateID:    req.CandidateID,
		JobTitle:       req.JobTitle,
		JobDescription: req.JobDescription,
		TechStack:      req.TechStack,
		ScheduledAt:    req.ScheduledAt,
		QuestionCount:  req.QuestionCount,
	})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, iv)
}

// handleListInterviews lists the caller's interviews, optionally by status.
func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	filter := types.InterviewFilter{Status: types.InterviewStatus(r.URL.Query().Get("status"))}

	ivs, err := s.workflow.ListInterviews(r.Context(), caller(r), filter)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"interviews": nonNil(ivs), "count": len(ivs)})
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	iv, err := s.workflow.GetInterview(r.Context(), id, caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	iv, err := s.workflow.StartInterview(r.Context(), id, caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

// handleSubmitAnswers records one or more answers in a single transaction.
func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.SubmitAnswersRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	iv, err := s.workflow.SubmitAnswers(r.Context(), id, caller(r), req.Answers)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

// handleAIEvaluation scores answered responses with the oracle. An empty
// body evaluates every response without an AI score.
func (s *Server) handleAIEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.AIEvaluationRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	report, err := s.workflow.EvaluateWithOracle(r.Context(), id, caller(r), req.QuestionIDs)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	report.Items = nonNil(report.Items)
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleManualScore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.ManualScoreRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	iv, err := s.workflow.RecordManualScore(r.Context(), id, caller(r), r.PathValue("question_id"), *req.Score, req.Feedback)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}

// handleSubmitEvaluation records the overall evaluation of a completed interview.
func (s *Server) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.EvaluationRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	iv, err := s.workflow.SubmitEvaluation(r.Context(), id, caller(r), workflow.EvaluationInput{
		OverallScore:    req.OverallScore,
		OverallFeedback: req.OverallFeedback,
		ResponseScores:  req.ResponseScores,
	})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, iv)
}
