package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// CreateMessage stores an inbox message
func (r *repo) CreateMessage(ctx context.Context, msg *types.Message) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO messages (id, sender_id, recipient_id, kind, subject, body, created_at, read_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.SenderID, msg.RecipientID, string(msg.Kind), msg.Subject, msg.Body, msg.CreatedAt, msg.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns a recipient's messages, newest first.
func (r *repo) ListMessages(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]*types.Message, error) {
	query := `SELECT id, sender_id, recipient_id, kind, subject, body, created_at, read_at
	          FROM messages WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, seq DESC`

	rows, err := r.q.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*types.Message
	for rows.Next() {
		var m types.Message
		var kind string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &kind, &m.Subject, &m.Body, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Kind = types.MessageKind(kind)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// MarkMessagesRead stamps read_at on the recipient's unread messages among ids
// and returns how many changed.
func (r *repo) MarkMessagesRead(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE messages SET read_at = $3
		 WHERE recipient_id = $1 AND id = ANY($2::uuid[]) AND read_at IS NULL`,
		recipientID, strIDs, at,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
