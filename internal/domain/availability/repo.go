package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for availability windows.
type Repository interface {
	Create(ctx context.Context, w *Window) error
	GetByID(ctx context.Context, id uuid.UUID) (*Window, error)

	// ListByDoctor returns all of a doctor's windows ordered by day of week,
	// then start time.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error)

	Update(ctx context.Context, w *Window) error
	Delete(ctx context.Context, id uuid.UUID) error
}
