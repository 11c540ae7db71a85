package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

const requestColumns = `id, kind, requester_id, target_id, hr_id, admin_id, status,
	hr_status_at_creation, message, created_at, updated_at, resolved_at`

func scanRequest(row pgx.Row) (*types.MappingRequest, error) {
	var req types.MappingRequest
	var kind, status, hrStatus string
	err := row.Scan(&req.ID, &kind, &req.RequesterID, &req.TargetID, &req.HRID, &req.AdminID, &status,
		&hrStatus, &req.Message, &req.CreatedAt, &req.UpdatedAt, &req.ResolvedAt)
	if err != nil {
		return nil, err
	}
	req.Kind = types.RequestKind(kind)
	req.Status = types.RequestStatus(status)
	req.HRStatusAtCreation = types.Status(hrStatus)
	return &req, nil
}

// CreateRequest inserts a mapping request. A second pending request for the
// same HR violates mapping_requests_one_pending and yields a ConflictError.
func (r *repo) CreateRequest(ctx context.Context, req *types.MappingRequest) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO mapping_requests (id, kind, requester_id, target_id, hr_id, admin_id, status,
		                               hr_status_at_creation, message, created_at, updated_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, string(req.Kind), req.RequesterID, req.TargetID, req.HRID, req.AdminID, string(req.Status),
		string(req.HRStatusAtCreation), req.Message, req.CreatedAt, req.UpdatedAt, req.ResolvedAt,
	)
	if err != nil {
		if pgErr, ok := pgError(err, codeUniqueViolation); ok && pgErr.ConstraintName == "mapping_requests_one_pending" {
			return &workflow.ConflictError{
				Entity: workflow.EntityRequest, ID: req.HRID.String(),
				Expected: "no pending request", Actual: string(types.RequestPending),
			}
		}
		return fmt.Errorf("failed to create mapping request: %w", err)
	}
	return nil
}

// GetRequest retrieves a mapping request by ID
func (r *repo) GetRequest(ctx context.Context, id uuid.UUID) (*types.MappingRequest, error) {
	req, err := scanRequest(r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM mapping_requests WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mapping request: %w", err)
	}
	return req, nil
}

// ListRequests returns matching requests, oldest first.
func (r *repo) ListRequests(ctx context.Context, f types.RequestFilter) ([]*types.MappingRequest, error) {
	var w filter
	if f.RequesterID != nil {
		w.add("requester_id = $%d", *f.RequesterID)
	}
	if f.TargetID != nil {
		w.add("target_id = $%d", *f.TargetID)
	}
	if f.HRID != nil {
		w.add("hr_id = $%d", *f.HRID)
	}
	if f.PartyID != nil {
		w.add("(requester_id = $%[1]d OR target_id = $%[1]d)", *f.PartyID)
	}
	if f.Kind != "" {
		w.add("kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}

	rows, err := r.q.Query(ctx, `SELECT `+requestColumns+` FROM mapping_requests`+w.where()+` ORDER BY created_at, seq`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapping requests: %w", err)
	}
	defer rows.Close()

	var reqs []*types.MappingRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// SwapRequestStatus moves a request from expected to next. Leaving pending
// stamps resolved_at.
func (r *repo) SwapRequestStatus(ctx context.Context, id uuid.UUID, expected, next types.RequestStatus, at time.Time) (bool, error) {
	var resolved *time.Time
	if next != types.RequestPending {
		resolved = &at
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE mapping_requests SET status = $3, updated_at = $4, resolved_at = COALESCE($5, resolved_at)
		 WHERE id = $1 AND status = $2`,
		id, string(expected), string(next), at, resolved,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update mapping request status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
