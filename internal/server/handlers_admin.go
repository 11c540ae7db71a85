package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// handleListActors lists actors, optionally filtered by role and status.
func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.ActorFilter{
		Role:   types.Role(q.Get("role")),
		Status: types.Status(q.Get("status")),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		s.errorResponse(w, r, &ErrValidation{Field: "role", Message: "must be admin, hr or candidate"})
		return
	}

	actors, err := s.workflow.ListActors(r.Context(), filter)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"actors": nonNil(actors), "count": len(actors)})
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	actor, err := s.workflow.GetActor(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, actor)
}

// handleRemoveActor deletes an actor and cleans up what referenced it.
func (s *Server) handleRemoveActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if err := s.workflow.RemoveActor(r.Context(), id, caller(r)); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.workflow.Stats(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// handleSupervisedHR lists the HR actors mapped to the calling admin.
func (s *Server) handleSupervisedHR(w http.ResponseWriter, r *http.Request) {
	hr, err := s.workflow.ListSupervisedHR(r.Context(), caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"hr": nonNil(hr), "count": len(hr)})
}

// handleAssignable lists candidates awaiting assignment and mapped HR actors.
func (s *Server) handleAssignable(w http.ResponseWriter, r *http.Request) {
	res, err := s.workflow.ListAssignable(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	res.Candidates = nonNil(res.Candidates)
	res.HR = nonNil(res.HR)
	s.jsonResponse(w, http.StatusOK, res)
}

// handleAssign assigns a candidate to a mapped HR actor.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req types.AssignRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	cand, err := s.workflow.Assign(r.Context(), req.CandidateID, req.HRID, caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cand)
}

// handleListCandidates lists candidates assigned to the calling HR.
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	cands, err := s.workflow.ListCandidatesOf(r.Context(), caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"candidates": nonNil(cands), "count": len(cands)})
}

// handleInviteCandidate sends an inbox message to an assigned candidate.
func (s *Server) handleInviteCandidate(w http.ResponseWriter, r *http.Request) {
	candID, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.InviteCandidateRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	msg, err := s.workflow.InviteCandidate(r.Context(), caller(r), candID, req.Subject, req.Message)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, msg)
}
