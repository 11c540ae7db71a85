package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// handleListMessages lists the caller's inbox, newest first. ?unread=true
// limits it to unread messages.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.workflow.ListMessages(r.Context(), caller(r), queryBool(r, "unread"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"messages": nonNil(msgs), "count": len(msgs)})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req types.MarkReadRequest
	if err := s.decode(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	n, err := s.workflow.MarkRead(r.Context(), caller(r), req.MessageIDs)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]int{"marked": n})
}
