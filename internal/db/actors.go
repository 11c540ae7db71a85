package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

const actorColumns = `id, role, name, email, status, supervisor_id, assigned_hr_id,
	skills, estimated_yoe, years_of_experience, resume_text, created_at, updated_at`

func scanActor(row pgx.Row) (*types.Actor, error) {
	var a types.Actor
	var role, status string
	err := row.Scan(&a.ID, &role, &a.Name, &a.Email, &status, &a.SupervisorID, &a.AssignedHRID,
		&a.Skills, &a.EstimatedYOE, &a.YearsOfExperience, &a.ResumeText, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Role = types.Role(role)
	a.Status = types.Status(status)
	a.HasResume = a.ResumeText != ""
	if len(a.Skills) == 0 {
		a.Skills = nil
	}
	return &a, nil
}

func (r *repo) getActor(ctx context.Context, query string, arg any) (*types.Actor, error) {
	a, err := scanActor(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	return a, nil
}

// GetActor retrieves an actor by ID
func (r *repo) GetActor(ctx context.Context, id uuid.UUID) (*types.Actor, error) {
	return r.getActor(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = $1`, id)
}

// LockActor reads an actor with FOR UPDATE. Outside a transaction the lock
// ends with the statement, which makes it a plain read.
func (r *repo) LockActor(ctx context.Context, id uuid.UUID) (*types.Actor, error) {
	return r.getActor(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = $1 FOR UPDATE`, id)
}

// GetActorByEmail retrieves an actor by email
func (r *repo) GetActorByEmail(ctx context.Context, email string) (*types.Actor, error) {
	return r.getActor(ctx, `SELECT `+actorColumns+` FROM actors WHERE email = $1`, normalizeEmail(email))
}

// GetCredentials returns the actor registered under email and its password hash.
func (r *repo) GetCredentials(ctx context.Context, email string) (*types.Actor, string, error) {
	var hash string
	row := r.q.QueryRow(ctx,
		`SELECT `+actorColumns+`, password_hash FROM actors WHERE email = $1`,
		normalizeEmail(email),
	)
	var a types.Actor
	var role, status string
	err := row.Scan(&a.ID, &role, &a.Name, &a.Email, &status, &a.SupervisorID, &a.AssignedHRID,
		&a.Skills, &a.EstimatedYOE, &a.YearsOfExperience, &a.ResumeText, &a.CreatedAt, &a.UpdatedAt, &hash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to get credentials: %w", err)
	}
	a.Role = types.Role(role)
	a.Status = types.Status(status)
	a.HasResume = a.ResumeText != ""
	return &a, hash, nil
}

// ListActors returns actors matching filter, oldest first.
func (r *repo) ListActors(ctx context.Context, f types.ActorFilter) ([]*types.Actor, error) {
	var w filter
	if f.Role != "" {
		w.add("role = $%d", string(f.Role))
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.SupervisorID != nil {
		w.add("supervisor_id = $%d", *f.SupervisorID)
	}
	if f.AssignedHRID != nil {
		w.add("assigned_hr_id = $%d", *f.AssignedHRID)
	}

	rows, err := r.q.Query(ctx, `SELECT `+actorColumns+` FROM actors`+w.where()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	defer rows.Close()

	var actors []*types.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan actor: %w", err)
		}
		actors = append(actors, a)
	}
	return actors, rows.Err()
}

// CreateActor inserts an actor. A taken email yields a DuplicateEmailError.
func (r *repo) CreateActor(ctx context.Context, a *types.Actor, passwordHash string) error {
	email := normalizeEmail(a.Email)
	skills := a.Skills
	if skills == nil {
		skills = []string{}
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO actors (id, role, name, email, password_hash, status, supervisor_id, assigned_hr_id,
		                     skills, estimated_yoe, years_of_experience, resume_text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, string(a.Role), a.Name, email, passwordHash, string(a.Status), a.SupervisorID, a.AssignedHRID,
		skills, a.EstimatedYOE, a.YearsOfExperience, a.ResumeText, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if pgErr, ok := pgError(err, codeUniqueViolation); ok && pgErr.ConstraintName == "actors_email_key" {
			return &workflow.DuplicateEmailError{Email: email}
		}
		return fmt.Errorf("failed to create actor: %w", err)
	}
	return nil
}

// SwapActorState applies next only if the stored status equals expected.
func (r *repo) SwapActorState(ctx context.Context, id uuid.UUID, expected types.Status, next types.ActorState, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE actors SET status = $3, supervisor_id = $4, assigned_hr_id = $5, updated_at = $6
		 WHERE id = $1 AND status = $2`,
		id, string(expected), string(next.Status), next.SupervisorID, next.AssignedHRID, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update actor status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateActorProfile writes the non-nil fields of u.
func (r *repo) UpdateActorProfile(ctx context.Context, id uuid.UUID, u types.ProfileUpdate, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE actors SET
		     name = COALESCE($2, name),
		     resume_text = COALESCE($3, resume_text),
		     skills = COALESCE($4, skills),
		     estimated_yoe = COALESCE($5, estimated_yoe),
		     years_of_experience = COALESCE($6, years_of_experience),
		     updated_at = $7
		 WHERE id = $1`,
		id, u.Name, u.ResumeText, u.Skills, u.EstimatedYOE, u.YearsOfExperience, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update actor profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &workflow.NotFoundError{Entity: workflow.EntityActor, ID: id.String()}
	}
	return nil
}

// DeleteActor removes an actor row. Requests and interviews that name it stay.
func (r *repo) DeleteActor(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete actor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &workflow.NotFoundError{Entity: workflow.EntityActor, ID: id.String()}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
