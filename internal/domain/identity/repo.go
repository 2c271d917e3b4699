package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists accounts and their role profiles. CreateAccount
// writes the user row and its profile in a single transaction so a
// half-registered account can never exist.
type Repository interface {
	CreateAccount(ctx context.Context, u *User, patient *PatientProfile, doctor *DoctorProfile) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
	ListUsers(ctx context.Context, role string, limit, offset int) ([]*User, int, error)

	GetPatientProfile(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	UpdatePatientProfile(ctx context.Context, p *PatientProfile) error

	GetDoctorProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)
	UpdateDoctorProfile(ctx context.Context, p *DoctorProfile) error

	ListDoctors(ctx context.Context, specialty string, limit, offset int) ([]*DoctorListing, int, error)
}
