package scheduling

import (
	"github.com/clinio/clinio/internal/platform/auth"
)

// AuthorizeTransition decides whether a role may request the given status on
// an appointment it can see. It is deliberately status-blind: whether the
// edge itself is legal is the lifecycle's job (CanTransition), so the two
// checks stay independently testable.
//
//   - patients may only cancel
//   - doctors may confirm or cancel
//   - admins may request any status
func AuthorizeTransition(role auth.Role, requested Status) error {
	switch role {
	case auth.RoleAdmin, auth.RoleDoctor:
		return nil
	case auth.RolePatient:
		if requested != StatusCancelled {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

// AuthorizeEdit decides whether the actor may change an appointment's
// timeslot or reason. Only the booking patient may edit, and only while the
// appointment is still pending.
func AuthorizeEdit(actor auth.Actor, appt *Appointment) error {
	if !actor.OwnsPatient(appt.PatientID) {
		return ErrForbidden
	}
	if appt.Status != StatusPending {
		return ErrImmutable
	}
	return nil
}

// visibleTo reports whether the actor's role scope includes the appointment.
func visibleTo(actor auth.Actor, appt *Appointment) bool {
	switch actor.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleDoctor:
		return actor.DoctorID != nil && *actor.DoctorID == appt.DoctorID
	case auth.RolePatient:
		return actor.PatientID != nil && *actor.PatientID == appt.PatientID
	}
	return false
}
