package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
	// MarkRead flips the read flag, but only if the notification belongs
	// to the given recipient.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}
