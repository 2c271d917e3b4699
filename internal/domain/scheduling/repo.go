package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    Status
}

// Repository is the persistence boundary for appointments.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error)

	// UpdateStatus applies a compare-and-set transition: the row is updated
	// only if its status still equals expected. ErrNotFound is returned when
	// no row matched, which callers must treat as a lost race and re-read.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (*Appointment, error)

	// UpdateFields edits timeslot and reason with the same compare-and-set
	// guard, so an edit can never land on an appointment that has left
	// pending.
	UpdateFields(ctx context.Context, id uuid.UUID, expected Status, timeslot time.Time, reason string) (*Appointment, error)

	// GetParties resolves the user accounts and display names behind the
	// appointment's patient and doctor profiles.
	GetParties(ctx context.Context, patientID, doctorID uuid.UUID) (*Parties, error)
}
