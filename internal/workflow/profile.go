package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Registration is the identity-independent part of a new account.
type Registration struct {
	Role         types.Role
	Name         string
	Email        string
	PasswordHash string
}

// Register creates an actor in the initial status of its role.
func (s *Service) Register(ctx context.Context, reg Registration) (*types.Actor, error) {
	if !reg.Role.Valid() {
		return nil, &InvalidStateError{Entity: EntityActor, ID: reg.Email, Reason: fmt.Sprintf("unknown role %q", reg.Role)}
	}
	now := s.now()
	a := &types.Actor{
		ID:        uuid.New(),
		Role:      reg.Role,
		Name:      strings.TrimSpace(reg.Name),
		Email:     strings.ToLower(strings.TrimSpace(reg.Email)),
		Status:    types.InitialStatus(reg.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateActor(ctx, a, reg.PasswordHash); err != nil {
		return nil, err
	}
	s.logger.Info("actor registered", "actor_id", a.ID, "role", string(a.Role))
	return a, nil
}

// GetActor returns an actor by id.
func (s *Service) GetActor(ctx context.Context, id uuid.UUID) (*types.Actor, error) {
	return s.Directory().Get(ctx, id)
}

// ListActors lists actors matching filter.
func (s *Service) ListActors(ctx context.Context, filter types.ActorFilter) ([]*types.Actor, error) {
	return s.store.ListActors(ctx, filter)
}

// CompleteHRProfile records an HR's years of experience and, optionally,
// resume text. An HR in pending_profile moves to profile_complete once both
// a resume and years of experience are on file.
func (s *Service) CompleteHRProfile(ctx context.Context, hrID uuid.UUID, years int, resumeText *string) (*types.Actor, error) {
	if years < 0 {
		return nil, &InvalidStateError{Entity: EntityActor, ID: hrID.String(), Reason: "years of experience must not be negative"}
	}
	update := types.ProfileUpdate{YearsOfExperience: &years}
	if resumeText != nil {
		text := strings.TrimSpace(*resumeText)
		if text == "" {
			return nil, &InvalidStateError{Entity: EntityActor, ID: hrID.String(), Reason: "resume text is empty"}
		}
		s.enrichUpdate(&update, text)
	}

	var hr *types.Actor
	err := s.atomic(ctx, func(r Repository, dir *Directory, _ *outbox) error {
		var err error
		if hr, err = dir.LockRole(ctx, hrID, types.RoleHR); err != nil {
			return err
		}
		if hr, err = s.applyProfile(ctx, r, dir, hr, update); err != nil {
			return err
		}
		return s.promoteHR(ctx, dir, hr)
	})
	if err != nil {
		return nil, err
	}
	return hr, nil
}

// SubmitResume stores resume text and its enrichment on an HR or candidate.
// A candidate in pending_resume becomes pending_assignment; an HR with years
// of experience on file completes its profile.
func (s *Service) SubmitResume(ctx context.Context, actorID uuid.UUID, resumeText string) (*types.Actor, error) {
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return nil, &InvalidStateError{Entity: EntityActor, ID: actorID.String(), Reason: "resume text is empty"}
	}
	var update types.ProfileUpdate
	s.enrichUpdate(&update, text)

	var a *types.Actor
	err := s.atomic(ctx, func(r Repository, dir *Directory, _ *outbox) error {
		var err error
		if a, err = dir.Lock(ctx, actorID); err != nil {
			return err
		}
		if a.Role == types.RoleAdmin {
			return &ForbiddenError{ActorID: actorID.String(), Action: "submit a resume", Reason: "admins have no resume"}
		}
		if a, err = s.applyProfile(ctx, r, dir, a, update); err != nil {
			return err
		}
		if a.Role == types.RoleHR {
			return s.promoteHR(ctx, dir, a)
		}
		if a.Status == types.CandidatePendingResume {
			next := a.State()
			next.Status = types.CandidatePendingAssignment
			_, err = dir.Transition(ctx, a, types.CandidatePendingResume, next)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("resume submitted", "actor_id", actorID, "status", string(a.Status), "skills", len(a.Skills))
	return a, nil
}

func (s *Service) enrichUpdate(u *types.ProfileUpdate, text string) {
	p := s.analyzer.Analyze(text)
	u.ResumeText = &text
	u.Skills = p.Skills
	if u.Skills == nil {
		u.Skills = []string{}
	}
	u.EstimatedYOE = p.EstimatedYOE
}

func (s *Service) applyProfile(ctx context.Context, r Repository, dir *Directory, a *types.Actor, u types.ProfileUpdate) (*types.Actor, error) {
	if err := r.UpdateActorProfile(ctx, a.ID, u, s.now()); err != nil {
		return nil, fmt.Errorf("failed to update profile of %s: %w", a.ID, err)
	}
	return dir.Lock(ctx, a.ID)
}

func (s *Service) promoteHR(ctx context.Context, dir *Directory, hr *types.Actor) error {
	if hr.Status != types.HRPendingProfile || !hr.HasResume || hr.YearsOfExperience == nil {
		return nil
	}
	next := hr.State()
	next.Status = types.HRProfileComplete
	_, err := dir.Transition(ctx, hr, types.HRPendingProfile, next)
	return err
}

// RemoveActor deletes an actor on behalf of an admin, first dissolving every
// edge that refers to it:
//   - removing an admin unmaps each HR it supervises and closes its pending requests;
//   - removing an HR releases its candidates and closes its pending requests.
//
// Requests and interviews stay behind as history.
func (s *Service) RemoveActor(ctx context.Context, targetID, actingID uuid.UUID) error {
	err := s.atomic(ctx, func(r Repository, dir *Directory, out *outbox) error {
		if _, err := requireActor(ctx, dir, actingID, "remove actors", types.RoleAdmin); err != nil {
			return err
		}
		if targetID == actingID {
			return &ForbiddenError{ActorID: actingID.String(), Action: "remove actors", Reason: "admins cannot remove themselves"}
		}
		target, err := dir.Lock(ctx, targetID)
		if err != nil {
			return err
		}

		switch target.Role {
		case types.RoleAdmin:
			supervised, err := r.ListActors(ctx, types.ActorFilter{Role: types.RoleHR, SupervisorID: &target.ID})
			if err != nil {
				return err
			}
			for _, h := range supervised {
				hr, err := dir.Lock(ctx, h.ID)
				if err != nil {
					return err
				}
				if _, err := s.detachHR(ctx, r, dir, hr, out); err != nil {
					return err
				}
				out.add(nil, hr.ID, types.MessageUnmapped, "Supervision ended", "Your supervising admin was removed.")
			}
			if err := s.closeRequestsOf(ctx, r, dir, types.RequestFilter{PartyID: &target.ID, Status: types.RequestPending}, true); err != nil {
				return err
			}
		case types.RoleHR:
			if _, err := s.releaseCandidates(ctx, r, dir, target, out); err != nil {
				return err
			}
			if err := s.closeRequestsOf(ctx, r, dir, types.RequestFilter{HRID: &target.ID, Status: types.RequestPending}, false); err != nil {
				return err
			}
		}
		return r.DeleteActor(ctx, target.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("actor removed", "actor_id", targetID, "by", actingID)
	return nil
}

// closeRequestsOf rejects every request matching filter, optionally
// returning the affected HR actors to profile_complete.
func (s *Service) closeRequestsOf(ctx context.Context, r Repository, dir *Directory, filter types.RequestFilter, releaseHR bool) error {
	reqs, err := r.ListRequests(ctx, filter)
	if err != nil {
		return err
	}
	for _, req := range reqs {
		hr, err := r.LockActor(ctx, req.HRID)
		if err != nil {
			return err
		}
		if err := s.swapRequest(ctx, r, req, types.RequestRejected); err != nil {
			return err
		}
		if releaseHR && hr != nil {
			if err := s.releasePendingHR(ctx, r, dir, hr); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats counts actors, interviews and pending requests.
func (s *Service) Stats(ctx context.Context) (*types.Stats, error) {
	actors, err := s.store.ListActors(ctx, types.ActorFilter{})
	if err != nil {
		return nil, err
	}
	interviews, err := s.store.ListInterviews(ctx, types.InterviewFilter{})
	if err != nil {
		return nil, err
	}
	pending, err := s.store.ListRequests(ctx, types.RequestFilter{Status: types.RequestPending})
	if err != nil {
		return nil, err
	}

	st := &types.Stats{
		ActorsByRole:       make(map[types.Role]int),
		HRByStatus:         make(map[types.Status]int),
		CandidatesByStatus: make(map[types.Status]int),
		InterviewsByStatus: make(map[types.InterviewStatus]int),
		PendingRequests:    len(pending),
	}
	for _, a := range actors {
		st.ActorsByRole[a.Role]++
		switch a.Role {
		case types.RoleHR:
			st.HRByStatus[a.Status]++
		case types.RoleCandidate:
			st.CandidatesByStatus[a.Status]++
		}
	}
	for _, iv := range interviews {
		st.InterviewsByStatus[iv.Status]++
	}
	return st, nil
}
