package workflow_test

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyToAdmin(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")

	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "I'd like to join")
	require.NoError(t, err)

	assert.Equal(t, types.KindApplication, req.Kind)
	assert.Equal(t, types.RequestPending, req.Status)
	assert.Equal(t, hr.ID, req.RequesterID)
	assert.Equal(t, admin.ID, req.TargetID)
	assert.Equal(t, types.HRApplicationPending, req.HRStatusAtCreation)
	assert.Equal(t, types.HRApplicationPending, f.actor(hr.ID).Status)
	assert.True(t, hasKind(f.inbox(admin.ID), types.MessageApplicationReceived))
}

func TestInviteHR(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")

	req, err := f.svc.InviteHR(f.ctx, admin.ID, hr.ID, "")
	require.NoError(t, err)

	assert.Equal(t, types.KindInvitation, req.Kind)
	assert.Equal(t, admin.ID, req.RequesterID)
	assert.Equal(t, hr.ID, req.TargetID)
	assert.Equal(t, types.HRAdminRequestPending, f.actor(hr.ID).Status)
	assert.True(t, hasKind(f.inbox(hr.ID), types.MessageInvitationReceived))
}

func TestOpenRequest_Preconditions(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	other := f.admin("carol")
	incomplete := f.register(types.RoleHR, "dave")
	hr := f.readyHR("bob")
	cand := f.readyCandidate("erin")

	t.Run("profile not complete", func(t *testing.T) {
		_, err := f.svc.ApplyToAdmin(f.ctx, incomplete.ID, admin.ID, "")
		assert.ErrorIs(t, err, workflow.ErrInvalidState)
		assert.Equal(t, types.HRPendingProfile, f.actor(incomplete.ID).Status)
	})

	t.Run("target is not an admin", func(t *testing.T) {
		_, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, cand.ID, "")
		assert.ErrorIs(t, err, workflow.ErrInvalidState)
	})

	t.Run("unknown admin", func(t *testing.T) {
		_, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, uuid.New(), "")
		assert.ErrorIs(t, err, workflow.ErrNotFound)
	})

	t.Run("request already pending", func(t *testing.T) {
		_, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
		require.NoError(t, err)

		_, err = f.svc.ApplyToAdmin(f.ctx, hr.ID, other.ID, "")
		assert.ErrorIs(t, err, workflow.ErrInvalidState)
		_, err = f.svc.InviteHR(f.ctx, other.ID, hr.ID, "")
		assert.ErrorIs(t, err, workflow.ErrInvalidState)

		pending, err := f.svc.ListRequests(f.ctx, types.RequestFilter{HRID: &hr.ID, Status: types.RequestPending})
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}

func TestAcceptRequest_MapsHR(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)

	accepted, err := f.svc.AcceptRequest(f.ctx, req.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestAccepted, accepted.Status)
	assert.NotNil(t, accepted.ResolvedAt)

	got := f.actor(hr.ID)
	assert.Equal(t, types.HRMapped, got.Status)
	require.NotNil(t, got.SupervisorID)
	assert.Equal(t, admin.ID, *got.SupervisorID)
	assert.True(t, hasKind(f.inbox(hr.ID), types.MessageRequestAccepted))
}

func TestAcceptRequest_OnlyTarget(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(f.ctx, req.ID, hr.ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = f.svc.AcceptRequest(f.ctx, req.ID, f.admin("mallory").ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	assert.Equal(t, types.HRApplicationPending, f.actor(hr.ID).Status)
}

func TestAcceptRequest_NotPending(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.InviteHR(f.ctx, admin.ID, hr.ID, "")
	require.NoError(t, err)
	_, err = f.svc.RejectRequest(f.ctx, req.ID, hr.ID)
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(f.ctx, req.ID, hr.ID)
	var ise *workflow.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, string(types.RequestPending), ise.Expected)
	assert.Equal(t, string(types.RequestRejected), ise.Actual)

	_, err = f.svc.AcceptRequest(f.ctx, uuid.New(), hr.ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestAcceptRequest_HRStatusDrift(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)

	// a writer outside the workflow moves the HR behind the request's back
	ok, err := f.store.SwapActorState(f.ctx, hr.ID, types.HRApplicationPending, types.ActorState{Status: types.HRProfileComplete}, hr.UpdatedAt)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.AcceptRequest(f.ctx, req.ID, admin.ID)
	var conflict *workflow.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, string(types.HRApplicationPending), conflict.Expected)
	assert.Equal(t, string(types.HRProfileComplete), conflict.Actual)

	stored, err := f.store.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestPending, stored.Status, "request stays pending after a lost race")
}

func TestConcurrentAccept(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AcceptRequest(f.ctx, req.ID, admin.ID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, errors.Is(err, workflow.ErrConflict) || errors.Is(err, workflow.ErrInvalidState), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, types.HRMapped, f.actor(hr.ID).Status)

	accepted := 0
	for _, m := range f.inbox(hr.ID) {
		if m.Kind == types.MessageRequestAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestRejectRequest_ReleasesHR(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)

	_, err = f.svc.RejectRequest(f.ctx, req.ID, hr.ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden, "the requester cannot reject")

	rejected, err := f.svc.RejectRequest(f.ctx, req.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestRejected, rejected.Status)
	assert.Equal(t, types.HRProfileComplete, f.actor(hr.ID).Status)
	assert.True(t, hasKind(f.inbox(hr.ID), types.MessageRequestRejected))

	// the HR may apply again
	_, err = f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.InviteHR(f.ctx, admin.ID, hr.ID, "")
	require.NoError(t, err)

	_, err = f.svc.CancelRequest(f.ctx, req.ID, hr.ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden, "only the requester cancels")

	cancelled, err := f.svc.CancelRequest(f.ctx, req.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestCancelled, cancelled.Status)
	assert.Equal(t, types.HRProfileComplete, f.actor(hr.ID).Status)
	assert.True(t, hasKind(f.inbox(hr.ID), types.MessageRequestCancelled))
}

func TestUnmap_Cascade(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.mappedHR("bob", admin)
	c1 := f.assignedCandidate("c1", hr, admin)
	c2 := f.assignedCandidate("c2", hr, admin)
	bystander := f.assignedCandidate("c3", f.mappedHR("zoe", admin), admin)

	res, err := f.svc.Unmap(f.ctx, hr.ID, hr.ID)
	require.NoError(t, err)
	assert.Len(t, res.Released, 2)

	got := f.actor(hr.ID)
	assert.Equal(t, types.HRProfileComplete, got.Status)
	assert.Nil(t, got.SupervisorID)

	for _, id := range []uuid.UUID{c1.ID, c2.ID} {
		c := f.actor(id)
		assert.Equal(t, types.CandidatePendingAssignment, c.Status)
		assert.Nil(t, c.AssignedHRID)
		assert.True(t, hasKind(f.inbox(id), types.MessageUnassigned))
	}
	assert.Equal(t, types.CandidateAssigned, f.actor(bystander.ID).Status)
	assert.True(t, hasKind(f.inbox(admin.ID), types.MessageUnmapped))
}

func TestUnmap_Authorization(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	other := f.admin("carol")
	hr := f.mappedHR("bob", admin)

	_, err := f.svc.Unmap(f.ctx, hr.ID, other.ID)
	assert.ErrorIs(t, err, workflow.ErrForbidden)
	assert.Equal(t, types.HRMapped, f.actor(hr.ID).Status)

	_, err = f.svc.Unmap(f.ctx, hr.ID, admin.ID)
	require.NoError(t, err)

	_, err = f.svc.Unmap(f.ctx, hr.ID, hr.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidState, "an unmapped HR cannot be unmapped again")
}

func TestGetRequest_PartiesAndAdmins(t *testing.T) {
	f := newFixture(t)
	admin := f.admin("alice")
	hr := f.readyHR("bob")
	req, err := f.svc.ApplyToAdmin(f.ctx, hr.ID, admin.ID, "")
	require.NoError(t, err)

	for _, viewer := range []uuid.UUID{hr.ID, admin.ID, f.admin("carol").ID} {
		got, err := f.svc.GetRequest(f.ctx, req.ID, viewer)
		require.NoError(t, err)
		assert.Equal(t, req.ID, got.ID)
	}

	_, err = f.svc.GetRequest(f.ctx, req.ID, f.readyHR("dave").ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	_, err = f.svc.GetRequest(f.ctx, req.ID, f.readyCandidate("erin").ID)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
	_, err = f.svc.GetRequest(f.ctx, req.ID, uuid.New())
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

// TestSinglePendingRequestProperty drives random mapping operations and checks
// after each step that no HR has more than one pending request and that the HR
// status agrees with its pending request.
func TestSinglePendingRequestProperty(t *testing.T) {
	f := newFixture(t)
	admins := []*types.Actor{f.admin("a1"), f.admin("a2")}
	hrs := []*types.Actor{f.readyHR("h1"), f.readyHR("h2"), f.readyHR("h3")}
	rng := rand.New(rand.NewSource(7))

	pick := func(list []*types.Actor) *types.Actor { return list[rng.Intn(len(list))] }
	anyRequest := func() *types.MappingRequest {
		reqs, err := f.svc.ListRequests(f.ctx, types.RequestFilter{})
		require.NoError(t, err)
		if len(reqs) == 0 {
			return nil
		}
		return reqs[rng.Intn(len(reqs))]
	}

	for step := 0; step < 400; step++ {
		var err error
		switch rng.Intn(6) {
		case 0:
			_, err = f.svc.ApplyToAdmin(f.ctx, pick(hrs).ID, pick(admins).ID, "")
		case 1:
			_, err = f.svc.InviteHR(f.ctx, pick(admins).ID, pick(hrs).ID, "")
		case 2:
			if req := anyRequest(); req != nil {
				_, err = f.svc.AcceptRequest(f.ctx, req.ID, req.TargetID)
			}
		case 3:
			if req := anyRequest(); req != nil {
				_, err = f.svc.RejectRequest(f.ctx, req.ID, req.TargetID)
			}
		case 4:
			if req := anyRequest(); req != nil {
				_, err = f.svc.CancelRequest(f.ctx, req.ID, req.RequesterID)
			}
		case 5:
			hr := f.actor(pick(hrs).ID)
			actor := hr.ID
			if hr.SupervisorID != nil && rng.Intn(2) == 0 {
				actor = *hr.SupervisorID
			}
			_, err = f.svc.Unmap(f.ctx, hr.ID, actor)
		}
		if err != nil {
			require.True(t, errors.Is(err, workflow.ErrInvalidState) || errors.Is(err, workflow.ErrConflict),
				"step %d: unexpected error %v", step, err)
		}

		for _, h := range hrs {
			pending, err := f.svc.ListRequests(f.ctx, types.RequestFilter{HRID: &h.ID, Status: types.RequestPending})
			require.NoError(t, err)
			require.LessOrEqual(t, len(pending), 1, "step %d: HR %s has %d pending requests", step, h.ID, len(pending))

			got := f.actor(h.ID)
			switch got.Status {
			case types.HRApplicationPending, types.HRAdminRequestPending:
				require.Len(t, pending, 1, "step %d", step)
				require.Equal(t, types.PendingStatusFor(pending[0].Kind), got.Status)
				require.Nil(t, got.SupervisorID)
			case types.HRMapped:
				require.Empty(t, pending, "step %d", step)
				require.NotNil(t, got.SupervisorID)
			default:
				require.Empty(t, pending, "step %d", step)
				require.Nil(t, got.SupervisorID)
			}
		}
	}
}
