package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// outbox collects notifications inside a transaction. They are only
// delivered after commit, so a rolled back operation never notifies.
type outbox struct {
	msgs []*types.Message
}

func (o *outbox) reset() { o.msgs = o.msgs[:0] }

func (o *outbox) add(sender *uuid.UUID, recipient uuid.UUID, kind types.MessageKind, subject, body string) {
	o.msgs = append(o.msgs, &types.Message{
		SenderID:    sender,
		RecipientID: recipient,
		Kind:        kind,
		Subject:     subject,
		Body:        body,
	})
}

// InboxNotifier stores notifications as inbox messages.
type InboxNotifier struct {
	repo Repository
}

// NewInboxNotifier returns a notifier writing into repo.
func NewInboxNotifier(repo Repository) *InboxNotifier {
	return &InboxNotifier{repo: repo}
}

func (n *InboxNotifier) Notify(ctx context.Context, msg *types.Message) error {
	if err := n.repo.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// ListMessages returns an actor's inbox, newest first.
func (s *Service) ListMessages(ctx context.Context, actorID uuid.UUID, unreadOnly bool) ([]*types.Message, error) {
	return s.store.ListMessages(ctx, actorID, unreadOnly)
}

// MarkRead marks messages of actorID read and returns how many changed.
// Ids belonging to other recipients are ignored.
func (s *Service) MarkRead(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.store.MarkMessagesRead(ctx, actorID, ids, s.now())
}

func displayName(a *types.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
