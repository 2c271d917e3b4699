package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinio/clinio/internal/platform/auth"
)

// User is a login account. Exactly one profile row accompanies it,
// matching the account's role; admins carry no profile.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Role         auth.Role `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DoctorProfile struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Specialty     string    `json:"specialty"`
	LicenseNumber string    `json:"license_number,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PatientProfile struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Address         string     `json:"address,omitempty"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	InsuranceNumber string     `json:"insurance_number,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DoctorListing is the public directory view of a doctor: the user
// fields a patient needs to pick a doctor, without account internals.
type DoctorListing struct {
	ProfileID uuid.UUID `json:"profile_id"`
	UserID    uuid.UUID `json:"user_id"`
	FullName  string    `json:"full_name"`
	Specialty string    `json:"specialty"`
	Address   string    `json:"address,omitempty"`
}

// Account is what callers get back after register/login/me: the user
// plus whichever profile the role implies.
type Account struct {
	User    *User           `json:"user"`
	Patient *PatientProfile `json:"patient_profile,omitempty"`
	Doctor  *DoctorProfile  `json:"doctor_profile,omitempty"`
}

// ProfileIDs extracts the profile pointers in the shape auth.Actor wants.
func (a *Account) ProfileIDs() (patientID, doctorID *uuid.UUID) {
	if a.Patient != nil {
		id := a.Patient.ID
		patientID = &id
	}
	if a.Doctor != nil {
		id := a.Doctor.ID
		doctorID = &id
	}
	return patientID, doctorID
}
