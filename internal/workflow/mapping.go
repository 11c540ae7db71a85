package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// ApplyToAdmin opens an application from an HR actor to an admin.
func (s *Service) ApplyToAdmin(ctx context.Context, hrID, adminID uuid.UUID, message string) (*types.MappingRequest, error) {
	return s.openRequest(ctx, types.KindApplication, hrID, adminID, message)
}

// InviteHR opens an invitation from an admin to an HR actor.
func (s *Service) InviteHR(ctx context.Context, adminID, hrID uuid.UUID, message string) (*types.MappingRequest, error) {
	return s.openRequest(ctx, types.KindInvitation, hrID, adminID, message)
}

func (s *Service) openRequest(ctx context.Context, kind types.RequestKind, hrID, adminID uuid.UUID, message string) (*types.MappingRequest, error) {
	var req *types.MappingRequest
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		admin, err := dir.Get(ctx, adminID)
		if err != nil {
			return err
		}
		if admin.Role != types.RoleAdmin {
			return &InvalidStateError{Entity: EntityActor, ID: adminID.String(), Reason: "target is not an admin"}
		}
		hr, err := dir.LockRole(ctx, hrID, types.RoleHR)
		if err != nil {
			return err
		}
		if err := requireStatus(hr, types.HRProfileComplete); err != nil {
			return err
		}

		pending, err := r.ListRequests(ctx, types.RequestFilter{HRID: &hrID, Status: types.RequestPending})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return &InvalidStateError{
				Entity: EntityActor, ID: hrID.String(),
				Reason: fmt.Sprintf("request %s is already pending for this HR", pending[0].ID),
			}
		}

		pendingStatus := types.PendingStatusFor(kind)
		next := hr.State()
		next.Status = pendingStatus
		if _, err := dir.Transition(ctx, hr, types.HRProfileComplete, next); err != nil {
			return err
		}

		now := s.now()
		req = &types.MappingRequest{
			ID:                 uuid.New(),
			Kind:               kind,
			HRID:               hrID,
			AdminID:            adminID,
			Status:             types.RequestPending,
			HRStatusAtCreation: pendingStatus,
			Message:            message,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if kind == types.KindApplication {
			req.RequesterID, req.TargetID = hrID, adminID
			out.add(&hrID, adminID, types.MessageApplicationReceived, "New HR application",
				fmt.Sprintf("%s applied to be supervised by you.", displayName(hr)))
		} else {
			req.RequesterID, req.TargetID = adminID, hrID
			out.add(&adminID, hrID, types.MessageInvitationReceived, "Supervision invitation",
				fmt.Sprintf("%s invited you to join their team.", displayName(admin)))
		}
		return r.CreateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mapping request opened", "request_id", req.ID, "kind", string(kind), "hr_id", hrID, "admin_id", adminID)
	return req, nil
}

// getPending loads a request and checks it is still pending.
func getPending(ctx context.Context, r Repository, id uuid.UUID) (*types.MappingRequest, error) {
	req, err := r.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &NotFoundError{Entity: EntityRequest, ID: id.String()}
	}
	if req.Status != types.RequestPending {
		return nil, &InvalidStateError{Entity: EntityRequest, ID: id.String(), Expected: string(types.RequestPending), Actual: string(req.Status)}
	}
	return req, nil
}

func (s *Service) swapRequest(ctx context.Context, r Repository, req *types.MappingRequest, next types.RequestStatus) error {
	at := s.now()
	ok, err := r.SwapRequestStatus(ctx, req.ID, types.RequestPending, next, at)
	if err != nil {
		return fmt.Errorf("failed to update request %s: %w", req.ID, err)
	}
	if !ok {
		current, err := r.GetRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		actual := "missing"
		if current != nil {
			actual = string(current.Status)
		}
		return &ConflictError{Entity: EntityRequest, ID: req.ID.String(), Expected: string(types.RequestPending), Actual: actual}
	}
	req.Status = next
	req.UpdatedAt = at
	req.ResolvedAt = &at
	return nil
}

// AcceptRequest accepts a pending request on behalf of its target. The HR is
// mapped by compare-and-swap against the status recorded when the request was
// opened; losing that race fails with a ConflictError and leaves the request
// pending. Any other pending request for the same HR is rejected.
func (s *Service) AcceptRequest(ctx context.Context, requestID, actingID uuid.UUID) (*types.MappingRequest, error) {
	var req *types.MappingRequest
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		var err error
		if req, err = getPending(ctx, r, requestID); err != nil {
			return err
		}
		if req.TargetID != actingID {
			return &ForbiddenError{ActorID: actingID.String(), Action: "accept request " + requestID.String(), Reason: "only the target may accept"}
		}

		hr, err := dir.LockRole(ctx, req.HRID, types.RoleHR)
		if err != nil {
			return err
		}
		pending, err := r.ListRequests(ctx, types.RequestFilter{HRID: &req.HRID, Status: types.RequestPending})
		if err != nil {
			return err
		}
		if len(pending) > 0 && pending[0].ID != req.ID {
			return &InvalidStateError{
				Entity: EntityRequest, ID: req.ID.String(),
				Reason: fmt.Sprintf("earlier request %s for the same HR takes precedence", pending[0].ID),
			}
		}

		if err := s.swapRequest(ctx, r, req, types.RequestAccepted); err != nil {
			return err
		}
		next := types.ActorState{Status: types.HRMapped, SupervisorID: types.IDPtr(req.AdminID)}
		if _, err := dir.Transition(ctx, hr, req.HRStatusAtCreation, next); err != nil {
			return err
		}

		for _, other := range pending {
			if other.ID == req.ID {
				continue
			}
			if err := s.swapRequest(ctx, r, other, types.RequestRejected); err != nil {
				return err
			}
			out.add(nil, other.RequesterID, types.MessageRequestRejected, "Request closed",
				"Your request was closed because another request for the same HR was accepted.")
		}

		out.add(&actingID, req.RequesterID, types.MessageRequestAccepted, string(req.Kind)+" accepted",
			fmt.Sprintf("Your %s was accepted.", req.Kind))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mapping request accepted", "request_id", req.ID, "hr_id", req.HRID, "admin_id", req.AdminID)
	return req, nil
}

// RejectRequest rejects a pending request on behalf of its target.
func (s *Service) RejectRequest(ctx context.Context, requestID, actingID uuid.UUID) (*types.MappingRequest, error) {
	return s.closeRequest(ctx, requestID, actingID, types.RequestRejected)
}

// CancelRequest withdraws a pending request on behalf of its requester.
func (s *Service) CancelRequest(ctx context.Context, requestID, actingID uuid.UUID) (*types.MappingRequest, error) {
	return s.closeRequest(ctx, requestID, actingID, types.RequestCancelled)
}

func (s *Service) closeRequest(ctx context.Context, requestID, actingID uuid.UUID, next types.RequestStatus) (*types.MappingRequest, error) {
	var req *types.MappingRequest
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		var err error
		if req, err = getPending(ctx, r, requestID); err != nil {
			return err
		}

		allowed, counterparty, kind := req.TargetID, req.RequesterID, types.MessageRequestRejected
		if next == types.RequestCancelled {
			allowed, counterparty, kind = req.RequesterID, req.TargetID, types.MessageRequestCancelled
		}
		if actingID != allowed {
			return &ForbiddenError{ActorID: actingID.String(), Action: fmt.Sprintf("mark request %s %s", requestID, next)}
		}

		// HR first, like every other operation touching an HR and its requests
		hr, err := r.LockActor(ctx, req.HRID)
		if err != nil {
			return err
		}
		if err := s.swapRequest(ctx, r, req, next); err != nil {
			return err
		}
		if hr != nil {
			if err := s.releasePendingHR(ctx, r, dir, hr); err != nil {
				return err
			}
		}

		out.add(&actingID, counterparty, kind, string(req.Kind)+" "+string(next),
			fmt.Sprintf("The %s was %s.", req.Kind, next))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mapping request closed", "request_id", req.ID, "status", string(next))
	return req, nil
}

// releasePendingHR returns an HR in a pending status to profile_complete once
// no pending request is left for it. An HR in any other status is left alone.
func (s *Service) releasePendingHR(ctx context.Context, r Repository, dir *Directory, hr *types.Actor) error {
	if hr.Status != types.HRApplicationPending && hr.Status != types.HRAdminRequestPending {
		return nil
	}
	remaining, err := r.ListRequests(ctx, types.RequestFilter{HRID: &hr.ID, Status: types.RequestPending})
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}
	next := hr.State()
	next.Status = types.HRProfileComplete
	_, err = dir.Transition(ctx, hr, hr.Status, next)
	return err
}

// UnmapResult reports the HR after an unmap and the candidates it released.
type UnmapResult struct {
	HR       *types.Actor   `json:"hr"`
	Released []*types.Actor `json:"released_candidates"`
}

// Unmap dissolves the supervision edge of a mapped HR. Only the HR itself or
// its supervising admin may do so. Every candidate assigned to the HR returns
// to pending_assignment in the same transaction.
func (s *Service) Unmap(ctx context.Context, hrID, actingID uuid.UUID) (*UnmapResult, error) {
	var res *UnmapResult
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		hr, err := dir.LockRole(ctx, hrID, types.RoleHR)
		if err != nil {
			return err
		}
		isSelf := actingID == hr.ID
		isSupervisor := hr.SupervisorID != nil && *hr.SupervisorID == actingID
		if !isSelf && !isSupervisor {
			return &ForbiddenError{ActorID: actingID.String(), Action: "unmap HR " + hrID.String(), Reason: "only the HR or its supervising admin may unmap"}
		}
		if err := requireStatus(hr, types.HRMapped); err != nil {
			return err
		}

		supervisor := hr.SupervisorID
		released, err := s.detachHR(ctx, r, dir, hr, out)
		if err != nil {
			return err
		}

		out.add(&actingID, hr.ID, types.MessageUnmapped, "Supervision ended", "You are no longer mapped to an admin.")
		if isSelf && supervisor != nil {
			out.add(&actingID, *supervisor, types.MessageUnmapped, "HR left your team",
				fmt.Sprintf("%s is no longer mapped to you.", displayName(hr)))
		}
		res = &UnmapResult{HR: hr, Released: released}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("HR unmapped", "hr_id", hrID, "released", len(res.Released))
	return res, nil
}

// detachHR moves a mapped HR back to profile_complete and releases its candidates.
func (s *Service) detachHR(ctx context.Context, r Repository, dir *Directory, hr *types.Actor, out *outbox) ([]*types.Actor, error) {
	next := types.ActorState{Status: types.HRProfileComplete}
	if _, err := dir.Transition(ctx, hr, types.HRMapped, next); err != nil {
		return nil, err
	}
	return s.releaseCandidates(ctx, r, dir, hr, out)
}

// releaseCandidates reverts every candidate assigned to hr to pending_assignment.
func (s *Service) releaseCandidates(ctx context.Context, r Repository, dir *Directory, hr *types.Actor, out *outbox) ([]*types.Actor, error) {
	assigned, err := r.ListActors(ctx, types.ActorFilter{Role: types.RoleCandidate, AssignedHRID: &hr.ID})
	if err != nil {
		return nil, err
	}
	released := make([]*types.Actor, 0, len(assigned))
	for _, c := range assigned {
		cand, err := dir.Lock(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		next := types.ActorState{Status: types.CandidatePendingAssignment}
		if _, err := dir.Transition(ctx, cand, types.CandidateAssigned, next); err != nil {
			return nil, err
		}
		released = append(released, cand)
		out.add(nil, cand.ID, types.MessageUnassigned, "Recruiter changed",
			"Your recruiter is no longer available. An administrator will assign you a new one.")
	}
	return released, nil
}

// ListRequests lists mapping requests matching filter, oldest first.
func (s *Service) ListRequests(ctx context.Context, filter types.RequestFilter) ([]*types.MappingRequest, error) {
	return s.store.ListRequests(ctx, filter)
}

// GetRequest returns a mapping request if actorID is its requester, its
// target or any admin. Other actors get NotFound.
func (s *Service) GetRequest(ctx context.Context, id, actorID uuid.UUID) (*types.MappingRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &NotFoundError{Entity: EntityRequest, ID: id.String()}
	}
	if req.RequesterID == actorID || req.TargetID == actorID {
		return req, nil
	}

	viewer, err := s.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if viewer == nil || viewer.Role != types.RoleAdmin {
		return nil, &NotFoundError{Entity: EntityRequest, ID: id.String()}
	}
	return req, nil
}

// ListSupervisedHR returns the HR actors mapped to adminID.
func (s *Service) ListSupervisedHR(ctx context.Context, adminID uuid.UUID) ([]*types.Actor, error) {
	return s.store.ListActors(ctx, types.ActorFilter{Role: types.RoleHR, SupervisorID: &adminID})
}
