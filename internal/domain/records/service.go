package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinio/clinio/internal/domain/scheduling"
	"github.com/clinio/clinio/internal/platform/auth"
)

// AppointmentDirectory resolves appointment ids. Ownership and access
// rules are applied here, not by the directory.
type AppointmentDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Service struct {
	repo         Repository
	appointments AppointmentDirectory
}

func NewService(repo Repository, appointments AppointmentDirectory) *Service {
	return &Service{repo: repo, appointments: appointments}
}

type CreateInput struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Diagnosis     string    `json:"diagnosis"`
	Prescription  string    `json:"prescription"`
	Notes         string    `json:"notes"`
}

// Create files a record against an appointment. Only the appointment's
// doctor (or an admin) may write one, and each appointment holds at
// most one record; the patient and doctor are copied from the
// appointment so they can never disagree with it.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*MedicalRecord, error) {
	if actor.Role != auth.RoleDoctor && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if in.AppointmentID == uuid.Nil {
		return nil, fmt.Errorf("%w: appointment_id is required", ErrValidation)
	}
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	if in.Diagnosis == "" {
		return nil, fmt.Errorf("%w: diagnosis is required", ErrValidation)
	}

	appt, err := s.appointments.Lookup(ctx, in.AppointmentID)
	if err != nil {
		if errors.Is(err, scheduling.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown appointment", ErrValidation)
		}
		return nil, err
	}
	// A doctor may only chart their own appointments. An appointment
	// outside the actor's scope reads as unknown.
	if !actor.IsAdmin() && !actor.OwnsDoctor(appt.DoctorID) {
		return nil, fmt.Errorf("%w: unknown appointment", ErrValidation)
	}

	rec := &MedicalRecord{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Diagnosis:     in.Diagnosis,
		Prescription:  strings.TrimSpace(in.Prescription),
		Notes:         strings.TrimSpace(in.Notes),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the record if it lies within the actor's scope.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, rec) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// ForAppointment returns the record filed against an appointment,
// scoped the same way Get is.
func (s *Service) ForAppointment(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID) (*MedicalRecord, error) {
	rec, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, rec) {
		return nil, ErrNotFound
	}
	return rec, nil
}

type UpdateInput struct {
	Diagnosis    *string `json:"diagnosis"`
	Prescription *string `json:"prescription"`
	Notes        *string `json:"notes"`
}

// Update amends a record. Only the doctor who filed it (or an admin)
// may change it.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateInput) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, rec) {
		return nil, ErrNotFound
	}
	if !actor.IsAdmin() && !actor.OwnsDoctor(rec.DoctorID) {
		return nil, ErrForbidden
	}

	if in.Diagnosis != nil {
		diagnosis := strings.TrimSpace(*in.Diagnosis)
		if diagnosis == "" {
			return nil, fmt.Errorf("%w: diagnosis cannot be empty", ErrValidation)
		}
		rec.Diagnosis = diagnosis
	}
	if in.Prescription != nil {
		rec.Prescription = strings.TrimSpace(*in.Prescription)
	}
	if in.Notes != nil {
		rec.Notes = strings.TrimSpace(*in.Notes)
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the actor's slice of the chart: admins see all, doctors
// and patients only records they are party to.
func (s *Service) List(ctx context.Context, actor auth.Actor, limit, offset int) ([]*MedicalRecord, int, error) {
	var filter ListFilter
	switch actor.Role {
	case auth.RoleAdmin:
		// unrestricted
	case auth.RoleDoctor:
		if actor.DoctorID == nil {
			return nil, 0, ErrForbidden
		}
		filter.DoctorID = actor.DoctorID
	case auth.RolePatient:
		if actor.PatientID == nil {
			return nil, 0, ErrForbidden
		}
		filter.PatientID = actor.PatientID
	default:
		return nil, 0, ErrForbidden
	}

	return s.repo.List(ctx, filter, limit, offset)
}

func visibleTo(actor auth.Actor, rec *MedicalRecord) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.OwnsPatient(rec.PatientID) || actor.OwnsDoctor(rec.DoctorID)
}
