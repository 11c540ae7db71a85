package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// handleRegister creates an HR or candidate account and logs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	actor, err := s.accounts.Register(r.Context(), &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.issueToken(w, r, actor, http.StatusCreated)
}

// handleLogin exchanges email and password for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	actor, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.issueToken(w, r, actor, http.StatusOK)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, actor *types.Actor, status int) {
	token, err := s.jwtService.GenerateToken(actor)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, status, types.LoginResponse{Actor: actor, Token: token})
}

// handleMe returns the authenticated actor.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, err := s.workflow.GetActor(r.Context(), caller(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, actor)
}
