package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

// CredentialStore looks up an actor and its password hash by email.
// Both store backends implement it.
type CredentialStore interface {
	GetCredentials(ctx context.Context, email string) (*types.Actor, string, error)
}

// AccountService handles registration, login and admin seeding on top of
// the workflow directory.
type AccountService struct {
	workflow       *workflow.Service
	credentials    CredentialStore
	passwordConfig *config.PasswordConfig
}

// NewAccountService creates a new AccountService with the given dependencies
func NewAccountService(wf *workflow.Service, creds CredentialStore, passwordConfig *config.PasswordConfig) *AccountService {
	return &AccountService{
		workflow:       wf,
		credentials:    creds,
		passwordConfig: passwordConfig,
	}
}

// Register creates an HR or candidate account with password authentication.
func (s *AccountService) Register(ctx context.Context, req *types.RegisterRequest) (*types.Actor, error) {
	if req.Role != types.RoleHR && req.Role != types.RoleCandidate {
		return nil, &ErrValidation{Field: "role", Message: "must be hr or candidate"}
	}
	return s.create(ctx, req.Role, req.Name, req.Email, req.Password)
}

// CreateAdmin creates an admin account. Admins are never self-registered.
func (s *AccountService) CreateAdmin(ctx context.Context, name, email, password string) (*types.Actor, error) {
	return s.create(ctx, types.RoleAdmin, name, email, password)
}

// EnsureAdmin creates the admin account unless email is already registered.
// The boolean reports whether an account was created. An existing account
// with another role is an error.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) (*types.Actor, bool, error) {
	existing, _, err := s.credentials.GetCredentials(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up %s: %w", email, err)
	}
	if existing != nil {
		if existing.Role != types.RoleAdmin {
			return nil, false, fmt.Errorf("%s is registered as %s, not admin", email, existing.Role)
		}
		return existing, false, nil
	}

	admin, err := s.CreateAdmin(ctx, name, email, password)
	if err != nil {
		// Another instance seeded it first.
		if errors.Is(err, workflow.ErrDuplicateEmail) {
			existing, _, lookupErr := s.credentials.GetCredentials(ctx, email)
			if lookupErr == nil && existing != nil && existing.Role == types.RoleAdmin {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return admin, true, nil
}

func (s *AccountService) create(ctx context.Context, role types.Role, name, email, password string) (*types.Actor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ErrValidation{Field: "name", Message: "required"}
	}
	if err := s.passwordConfig.CheckStrength(password); err != nil {
		return nil, &ErrValidation{Field: "password", Message: err.Error()}
	}

	passwordHash, err := s.passwordConfig.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	actor, err := s.workflow.Register(ctx, workflow.Registration{
		Role:         role,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, workflow.ErrDuplicateEmail) {
			return nil, &ErrEmailAlreadyExists{Email: strings.ToLower(strings.TrimSpace(email))}
		}
		return nil, err
	}
	return actor, nil
}

// Authenticate checks email and password and returns the actor.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*types.Actor, error) {
	actor, hash, err := s.credentials.GetCredentials(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	// Same error for unknown email and wrong password.
	if actor == nil || hash == "" {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(password, hash) {
		return nil, &ErrInvalidCredentials{}
	}
	return actor, nil
}
