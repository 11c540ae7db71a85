package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Assign gives a pending_assignment candidate to a mapped HR. Only admins may
// assign. Both statuses are checked on locked rows and the candidate moves to
// assigned by compare-and-swap.
func (s *Service) Assign(ctx context.Context, candidateID, hrID, actingID uuid.UUID) (*types.Actor, error) {
	var cand *types.Actor
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		if _, err := requireActor(ctx, dir, actingID, "assign candidates", types.RoleAdmin); err != nil {
			return err
		}
		hr, err := dir.LockRole(ctx, hrID, types.RoleHR)
		if err != nil {
			return err
		}
		if cand, err = dir.LockRole(ctx, candidateID, types.RoleCandidate); err != nil {
			return err
		}
		if err := requireStatus(cand, types.CandidatePendingAssignment); err != nil {
			return err
		}
		if err := requireStatus(hr, types.HRMapped); err != nil {
			return err
		}

		next := types.ActorState{Status: types.CandidateAssigned, AssignedHRID: types.IDPtr(hr.ID)}
		if _, err := dir.Transition(ctx, cand, types.CandidatePendingAssignment, next); err != nil {
			return err
		}

		out.add(&actingID, cand.ID, types.MessageCandidateAssigned, "Recruiter assigned",
			fmt.Sprintf("%s is now your recruiter.", displayName(hr)))
		out.add(&actingID, hr.ID, types.MessageCandidateAssigned, "New candidate",
			fmt.Sprintf("%s has been assigned to you.", displayName(cand)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("candidate assigned", "candidate_id", candidateID, "hr_id", hrID, "admin_id", actingID)
	return cand, nil
}

// InviteCandidate sends a message from a mapped HR to a candidate awaiting
// assignment. It changes no workflow state.
func (s *Service) InviteCandidate(ctx context.Context, hrID, candidateID uuid.UUID, subject, body string) (*types.Message, error) {
	dir := s.Directory()
	hr, err := dir.Get(ctx, hrID)
	if err != nil {
		return nil, err
	}
	if hr.Role != types.RoleHR {
		return nil, &ForbiddenError{ActorID: hrID.String(), Action: "invite candidates"}
	}
	if err := requireStatus(hr, types.HRMapped); err != nil {
		return nil, err
	}
	cand, err := dir.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if cand.Role != types.RoleCandidate {
		return nil, &InvalidStateError{Entity: EntityActor, ID: candidateID.String(), Reason: "not a candidate"}
	}
	if err := requireStatus(cand, types.CandidatePendingAssignment); err != nil {
		return nil, err
	}

	if strings.TrimSpace(subject) == "" {
		subject = "Interview invitation from " + displayName(hr)
	}
	msg := &types.Message{
		SenderID:    &hrID,
		RecipientID: candidateID,
		Kind:        types.MessageCandidateInvited,
		Subject:     subject,
		Body:        body,
	}
	s.deliver(ctx, []*types.Message{msg})
	return msg, nil
}

// Assignable lists the two sides an admin can pair up.
type Assignable struct {
	Candidates []*types.Actor `json:"candidates"`
	HR         []*types.Actor `json:"hr"`
}

// ListAssignable returns candidates awaiting assignment and mapped HR actors.
func (s *Service) ListAssignable(ctx context.Context) (*Assignable, error) {
	cands, err := s.store.ListActors(ctx, types.ActorFilter{Role: types.RoleCandidate, Status: types.CandidatePendingAssignment})
	if err != nil {
		return nil, err
	}
	hrs, err := s.store.ListActors(ctx, types.ActorFilter{Role: types.RoleHR, Status: types.HRMapped})
	if err != nil {
		return nil, err
	}
	return &Assignable{Candidates: cands, HR: hrs}, nil
}

// ListCandidatesOf returns the candidates currently assigned to hrID.
func (s *Service) ListCandidatesOf(ctx context.Context, hrID uuid.UUID) ([]*types.Actor, error) {
	return s.store.ListActors(ctx, types.ActorFilter{Role: types.RoleCandidate, AssignedHRID: &hrID})
}
