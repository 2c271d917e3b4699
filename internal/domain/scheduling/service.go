package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinio/clinio/internal/platform/auth"
	"github.com/clinio/clinio/internal/platform/notify"
)

// Dispatcher delivers booking notifications. Implemented by notify.Dispatcher.
type Dispatcher interface {
	Emit(ctx context.Context, recipientID uuid.UUID, kind notify.Kind, snap notify.Snapshot)
}

// Service orchestrates the appointment lifecycle: booking, status
// transitions, field edits, and the notifications each of those emits.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, dispatcher Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateInput is the payload for booking a new appointment.
type CreateInput struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Timeslot time.Time `json:"timeslot"`
	Reason   string    `json:"reason"`
}

// EditInput carries optional field changes; nil fields are left untouched.
type EditInput struct {
	Timeslot *time.Time `json:"timeslot"`
	Reason   *string    `json:"reason"`
}

// Create books a new pending appointment for the acting patient and notifies
// both parties.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Appointment, error) {
	if actor.Role != auth.RolePatient || actor.PatientID == nil {
		return nil, ErrForbidden
	}

	if in.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if in.Timeslot.IsZero() {
		return nil, fmt.Errorf("%w: timeslot is required", ErrValidation)
	}
	if !in.Timeslot.After(s.now()) {
		return nil, fmt.Errorf("%w: timeslot must be in the future", ErrValidation)
	}

	parties, err := s.repo.GetParties(ctx, *actor.PatientID, in.DoctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown doctor", ErrValidation)
		}
		return nil, err
	}

	appt := &Appointment{
		PatientID: *actor.PatientID,
		DoctorID:  in.DoctorID,
		Timeslot:  in.Timeslot,
		Reason:    in.Reason,
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	snap := s.snapshot(appt, parties)
	s.dispatcher.Emit(ctx, parties.DoctorUserID, notify.KindBookingRequested, snap)
	s.dispatcher.Emit(ctx, parties.PatientUserID, notify.KindBookingPlaced, snap)

	return appt, nil
}

// Get returns the appointment if it lies within the actor's scope.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	return s.load(ctx, actor, id)
}

// Lookup fetches an appointment without scoping. It exists for collaborating
// services (medical records) that apply their own access rules.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the actor's slice of the appointment book: admins see all,
// doctors and patients only their own. An optional status filter narrows the
// result.
func (s *Service) List(ctx context.Context, actor auth.Actor, status Status, limit, offset int) ([]*Appointment, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	filter := ListFilter{Status: status}
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

// Transition moves an appointment to the requested status, enforcing the
// role matrix and the lifecycle, and notifies both parties of the change.
// Concurrent transitions serialize on the database row: the losing request
// observes the winner's status and is rejected like any other illegal edge.
func (s *Service) Transition(ctx context.Context, actor auth.Actor, id uuid.UUID, requested Status) (*Appointment, error) {
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !requested.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, requested)
	}
	if err := AuthorizeTransition(actor.Role, requested); err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, requested) {
		return nil, &InvalidTransitionError{Current: appt.Status, Requested: requested}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, requested)
	if errors.Is(err, ErrNotFound) {
		// Lost a race: some other request changed the status between our
		// read and the compare-and-set. Report against the fresh state.
		fresh, ferr := s.load(ctx, actor, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &InvalidTransitionError{Current: fresh.Status, Requested: requested}
	}
	if err != nil {
		return nil, err
	}

	s.notifyTransition(ctx, updated)
	return updated, nil
}

// Edit changes the timeslot or reason of a pending appointment. Edits emit
// no notifications; only lifecycle events do.
func (s *Service) Edit(ctx context.Context, actor auth.Actor, id uuid.UUID, in EditInput) (*Appointment, error) {
	appt, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeEdit(actor, appt); err != nil {
		return nil, err
	}

	timeslot := appt.Timeslot
	if in.Timeslot != nil {
		timeslot = *in.Timeslot
	}
	reason := appt.Reason
	if in.Reason != nil {
		reason = strings.TrimSpace(*in.Reason)
	}

	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if !timeslot.After(s.now()) {
		return nil, fmt.Errorf("%w: timeslot must be in the future", ErrValidation)
	}

	updated, err := s.repo.UpdateFields(ctx, id, StatusPending, timeslot, reason)
	if errors.Is(err, ErrNotFound) {
		// The appointment left pending between our read and the write.
		if _, ferr := s.load(ctx, actor, id); ferr != nil {
			return nil, ferr
		}
		return nil, ErrImmutable
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// load fetches an appointment and collapses out-of-scope access into
// ErrNotFound.
func (s *Service) load(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, appt) {
		return nil, ErrNotFound
	}
	return appt, nil
}

func (s *Service) snapshot(appt *Appointment, parties *Parties) notify.Snapshot {
	return notify.Snapshot{
		AppointmentID: appt.ID,
		PatientName:   parties.PatientName,
		DoctorName:    parties.DoctorName,
		Timeslot:      appt.Timeslot,
		Status:        string(appt.Status),
	}
}

// notifyTransition emits one notification to each party for a completed
// status change. Notification failures never surface to the caller.
func (s *Service) notifyTransition(ctx context.Context, appt *Appointment) {
	parties, err := s.repo.GetParties(ctx, appt.PatientID, appt.DoctorID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("resolve notification recipients failed")
		return
	}

	snap := s.snapshot(appt, parties)
	switch appt.Status {
	case StatusConfirmed:
		s.dispatcher.Emit(ctx, parties.PatientUserID, notify.KindBookingConfirmed, snap)
		s.dispatcher.Emit(ctx, parties.DoctorUserID, notify.KindConfirmationRecorded, snap)
	case StatusCancelled:
		s.dispatcher.Emit(ctx, parties.PatientUserID, notify.KindBookingCancelled, snap)
		s.dispatcher.Emit(ctx, parties.DoctorUserID, notify.KindBookingCancelled, snap)
	}
}
