package server

import (
	"context"
	"testing"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/memstore"
	"github.com/jonathan/hiring-pipeline/internal/questions"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAccountService(t *testing.T) *AccountService {
	t.Helper()
	store := memstore.New()
	wf, err := workflow.New(workflow.Config{Store: store, Questions: questions.Default()})
	require.NoError(t, err)
	return NewAccountService(wf, store, &config.PasswordConfig{BcryptCost: bcrypt.MinCost, MinLength: 8, Pepper: "pepper"})
}

func TestAccountService_RegisterAndAuthenticate(t *testing.T) {
	s := newAccountService(t)
	ctx := context.Background()

	actor, err := s.Register(ctx, &types.RegisterRequest{Name: "Hana", Email: "hana@example.com", Password: "s3cret-pass", Role: types.RoleHR})
	require.NoError(t, err)
	assert.Equal(t, types.HRPendingProfile, actor.Status)

	got, err := s.Authenticate(ctx, "HANA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, actor.ID, got.ID)

	_, err = s.Authenticate(ctx, "hana@example.com", "wrong-pass")
	assert.IsType(t, &ErrInvalidCredentials{}, err)
	_, err = s.Authenticate(ctx, "ghost@example.com", "s3cret-pass")
	assert.IsType(t, &ErrInvalidCredentials{}, err)
}

func TestAccountService_RegisterRejects(t *testing.T) {
	s := newAccountService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, &types.RegisterRequest{Name: "Root", Email: "root@example.com", Password: "s3cret-pass", Role: types.RoleAdmin})
	assert.IsType(t, &ErrValidation{}, err)

	_, err = s.Register(ctx, &types.RegisterRequest{Name: "Short", Email: "short@example.com", Password: "short", Role: types.RoleCandidate})
	assert.IsType(t, &ErrValidation{}, err)

	_, err = s.Register(ctx, &types.RegisterRequest{Name: "Dup", Email: "dup@example.com", Password: "s3cret-pass", Role: types.RoleCandidate})
	require.NoError(t, err)
	_, err = s.Register(ctx, &types.RegisterRequest{Name: "Dup", Email: "DUP@example.com", Password: "s3cret-pass", Role: types.RoleHR})
	var dup *ErrEmailAlreadyExists
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "dup@example.com", dup.Email)
}

func TestAccountService_EnsureAdmin(t *testing.T) {
	s := newAccountService(t)
	ctx := context.Background()

	admin, created, err := s.EnsureAdmin(ctx, "Root", "root@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, types.RoleAdmin, admin.Role)

	again, created, err := s.EnsureAdmin(ctx, "Root", "root@example.com", "another-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	// the original password still works
	_, err = s.Authenticate(ctx, "root@example.com", "admin-password")
	assert.NoError(t, err)

	_, err = s.Register(ctx, &types.RegisterRequest{Name: "Cand", Email: "cand@example.com", Password: "s3cret-pass", Role: types.RoleCandidate})
	require.NoError(t, err)
	_, _, err = s.EnsureAdmin(ctx, "Cand", "cand@example.com", "admin-password")
	assert.Error(t, err)
}
