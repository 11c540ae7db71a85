package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Directory is the actor directory bound to one repository (usually a
// transaction). Every status mutation in the core goes through SetStatus or
// Transition, both compare-and-swap.
type Directory struct {
	repo Repository
	now  func() time.Time
}

// NewDirectory binds a directory to repo.
func NewDirectory(repo Repository, now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{repo: repo, now: now}
}

// Get returns the actor or a NotFoundError.
func (d *Directory) Get(ctx context.Context, id uuid.UUID) (*types.Actor, error) {
	a, err := d.repo.GetActor(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Entity: EntityActor, ID: id.String()}
	}
	return a, nil
}

// Lock is Get that also holds the actor for the rest of the transaction.
func (d *Directory) Lock(ctx context.Context, id uuid.UUID) (*types.Actor, error) {
	a, err := d.repo.LockActor(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Entity: EntityActor, ID: id.String()}
	}
	return a, nil
}

// LockRole locks an actor and requires it to have role.
func (d *Directory) LockRole(ctx context.Context, id uuid.UUID, role types.Role) (*types.Actor, error) {
	a, err := d.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role != role {
		return nil, &InvalidStateError{Entity: EntityActor, ID: id.String(), Reason: fmt.Sprintf("actor is a %s, not a %s", a.Role, role)}
	}
	return a, nil
}

// SetStatus changes only the status of an actor, keeping both edges.
func (d *Directory) SetStatus(ctx context.Context, id uuid.UUID, next, expected types.Status) (*types.Actor, error) {
	a, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state := a.State()
	state.Status = next
	return d.Transition(ctx, a, expected, state)
}

// Transition swaps the CAS-protected state of a from expected to next.
// a is the caller's last read of the actor and is updated in place on success.
func (d *Directory) Transition(ctx context.Context, a *types.Actor, expected types.Status, next types.ActorState) (*types.Actor, error) {
	if !types.StatusValidFor(a.Role, next.Status) {
		return nil, &InvalidStateError{
			Entity: EntityActor, ID: a.ID.String(), Actual: string(a.Status),
			Reason: fmt.Sprintf("%q is not a %s status", next.Status, a.Role),
		}
	}

	at := d.now()
	ok, err := d.repo.SwapActorState(ctx, a.ID, expected, next, at)
	if err != nil {
		return nil, fmt.Errorf("failed to update actor %s: %w", a.ID, err)
	}
	if !ok {
		current, err := d.repo.GetActor(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, &NotFoundError{Entity: EntityActor, ID: a.ID.String()}
		}
		return nil, &ConflictError{Entity: EntityActor, ID: a.ID.String(), Expected: string(expected), Actual: string(current.Status)}
	}

	a.Apply(next)
	a.UpdatedAt = at
	return a, nil
}

// requireStatus returns an InvalidStateError unless a is in one of want.
func requireStatus(a *types.Actor, want ...types.Status) error {
	for _, s := range want {
		if a.Status == s {
			return nil
		}
	}
	expected := ""
	for i, s := range want {
		if i > 0 {
			expected += "|"
		}
		expected += string(s)
	}
	return &InvalidStateError{Entity: EntityActor, ID: a.ID.String(), Expected: expected, Actual: string(a.Status)}
}
