package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// handleListAdmins lists the admins an HR actor can apply to, without
// their workflow fields.
func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.workflow.ListActors(r.Context(), types.ActorFilter{Role: types.RoleAdmin})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	out := make([]types.AdminInfo, 0, len(admins))
	for _, a := range admins {
		out = append(out, types.AdminInfo{ID: a.ID, Name: a.Name, Email: a.Email})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"admins": out, "count": len(out)})
}

// handleApply opens an HR application to an admin.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req types.ApplyRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	mr, err := s.workflow.ApplyToAdmin(r.Context(), caller(r), req.AdminID, req.Message)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, mr)
}

// handleInviteHR opens an admin invitation to an HR actor.
func (s *Server) handleInviteHR(w http.ResponseWriter, r *http.Request) {
	var req types.InviteHRRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	mr, err := s.workflow.InviteHR(r.Context(), caller(r), req.HRID, req.Message)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, mr)
}

// handleListRequests lists requests where the caller is requester or target.
// Optional filters: status, kind.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	me := caller(r)
	q := r.URL.Query()
	filter := types.RequestFilter{
		PartyID: &me,
		Status:  types.RequestStatus(q.Get("status")),
		Kind:    types.RequestKind(q.Get("kind")),
	}

	reqs, err := s.workflow.ListRequests(r.Context(), filter)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"requests": nonNil(reqs), "count": len(reqs)})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	mr, err := s.workflow.GetRequest(r.Context(), id, caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, mr)
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	s.resolveRequest(w, r, s.workflow.AcceptRequest)
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	s.resolveRequest(w, r, s.workflow.RejectRequest)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	s.resolveRequest(w, r, s.workflow.CancelRequest)
}

type resolveFunc func(ctx context.Context, requestID, actingID uuid.UUID) (*types.MappingRequest, error)

func (s *Server) resolveRequest(w http.ResponseWriter, r *http.Request, resolve resolveFunc) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	mr, err := resolve(r.Context(), id, caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, mr)
}

// handleUnmap dissolves an HR's supervision edge. Callable by the HR itself
// or its supervising admin.
func (s *Server) handleUnmap(w http.ResponseWriter, r *http.Request) {
	hrID, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	res, err := s.workflow.Unmap(r.Context(), hrID, caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
