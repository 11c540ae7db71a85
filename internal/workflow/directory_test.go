package workflow_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStatus_StaleExpectedConflicts(t *testing.T) {
	f := newFixture(t)
	dir := f.svc.Directory()
	hr := f.register(types.RoleHR, "bob")
	before := f.actor(hr.ID)

	_, err := dir.SetStatus(f.ctx, hr.ID, types.HRProfileComplete, types.HRMapped)
	require.ErrorIs(t, err, workflow.ErrConflict)

	var conflict *workflow.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, workflow.EntityActor, conflict.Entity)
	assert.Equal(t, hr.ID.String(), conflict.ID)
	assert.Equal(t, string(types.HRMapped), conflict.Expected)
	assert.Equal(t, string(types.HRPendingProfile), conflict.Actual)

	after := f.actor(hr.ID)
	assert.Equal(t, types.HRPendingProfile, after.Status)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestSetStatus_KeepsEdges(t *testing.T) {
	f := newFixture(t)
	dir := f.svc.Directory()
	admin := f.admin("alice")
	hr := f.mappedHR("bob", admin)

	got, err := dir.SetStatus(f.ctx, hr.ID, types.HRProfileComplete, types.HRMapped)
	require.NoError(t, err)
	assert.Equal(t, types.HRProfileComplete, got.Status)

	stored := f.actor(hr.ID)
	assert.Equal(t, types.HRProfileComplete, stored.Status)
	require.NotNil(t, stored.SupervisorID)
	assert.Equal(t, admin.ID, *stored.SupervisorID)
}

func TestSetStatus_RejectsForeignStatus(t *testing.T) {
	f := newFixture(t)
	hr := f.register(types.RoleHR, "bob")

	_, err := f.svc.Directory().SetStatus(f.ctx, hr.ID, types.CandidateAssigned, types.HRPendingProfile)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	assert.Equal(t, types.HRPendingProfile, f.actor(hr.ID).Status)
}

func TestSetStatus_UnknownActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Directory().SetStatus(f.ctx, uuid.New(), types.HRProfileComplete, types.HRPendingProfile)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}
