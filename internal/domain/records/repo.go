package records

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a record listing. Nil pointers mean "any".
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, rec *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, rec *MedicalRecord) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*MedicalRecord, int, error)
}
