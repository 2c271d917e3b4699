package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinio/clinio/internal/platform/auth"
)

// Service is the inbox for stored notifications. It also satisfies the
// dispatcher's Store interface, so dispatched messages land here.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save persists a rendered message for a recipient and returns its id.
func (s *Service) Save(ctx context.Context, recipientID uuid.UUID, message string) (uuid.UUID, error) {
	n := &Notification{RecipientID: recipientID, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return uuid.Nil, err
	}
	return n.ID, nil
}

// List returns the actor's notifications, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByRecipient(ctx, actor.UserID, limit, offset)
}

// UnreadCount returns how many of the actor's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, actor auth.Actor) (int, error) {
	return s.repo.UnreadCount(ctx, actor.UserID)
}

// MarkRead marks one of the actor's notifications as read. Another
// user's notification reads as not found.
func (s *Service) MarkRead(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, actor.UserID)
}
