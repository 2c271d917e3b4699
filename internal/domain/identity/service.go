package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinio/clinio/internal/platform/auth"
	"github.com/clinio/clinio/pkg/pagination"
)

const minPasswordLength = 8

type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
	logger zerolog.Logger
}

func NewService(repo Repository, tokens *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`

	// Doctor fields.
	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`

	// Patient fields.
	DateOfBirth     string `json:"date_of_birth"`
	InsuranceNumber string `json:"insurance_number"`

	Address string `json:"address"`
}

func (in *RegisterInput) validate() (auth.Role, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return "", fmt.Errorf("%w: username is required", ErrValidation)
	}
	if in.Email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	role := auth.Role(in.Role)
	switch role {
	case auth.RolePatient, auth.RoleDoctor:
	case auth.RoleAdmin:
		// Admin accounts are provisioned out of band, never self-registered.
		return "", fmt.Errorf("%w: cannot self-register as admin", ErrValidation)
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}
	if role == auth.RoleDoctor && strings.TrimSpace(in.Specialty) == "" {
		return "", fmt.Errorf("%w: specialty is required for doctors", ErrValidation)
	}
	return role, nil
}

// Register creates a user and its role profile atomically. Patients and
// doctors self-register; the role decides which profile row is written.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	role, err := in.validate()
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     in.Username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         role,
		PasswordHash: hash,
	}

	account := &Account{User: user}
	var patient *PatientProfile
	var doctor *DoctorProfile
	switch role {
	case auth.RolePatient:
		patient = &PatientProfile{
			Address:         strings.TrimSpace(in.Address),
			InsuranceNumber: strings.TrimSpace(in.InsuranceNumber),
		}
		if in.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", in.DateOfBirth)
			if err != nil {
				return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrValidation)
			}
			patient.DateOfBirth = &dob
		}
		account.Patient = patient
	case auth.RoleDoctor:
		doctor = &DoctorProfile{
			Specialty:     strings.TrimSpace(in.Specialty),
			LicenseNumber: strings.TrimSpace(in.LicenseNumber),
			Address:       strings.TrimSpace(in.Address),
		}
		account.Doctor = doctor
	}

	if err := s.repo.CreateAccount(ctx, user, patient, doctor); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Str("role", string(role)).Msg("account registered")
	return account, nil
}

// Login verifies credentials and issues a signed token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Account, string, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	account, err := s.loadAccount(ctx, user)
	if err != nil {
		return nil, "", err
	}

	patientID, doctorID := account.ProfileIDs()
	token, err := s.tokens.Issue(auth.Actor{
		UserID:    user.ID,
		Role:      user.Role,
		PatientID: patientID,
		DoctorID:  doctorID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return account, token, nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, actor auth.Actor) (*Account, error) {
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(ctx, user)
}

type ContactInput struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// UpdateContact edits the caller's own user record. Only provided
// fields change.
func (s *Service) UpdateContact(ctx context.Context, actor auth.Actor, in ContactInput) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		user.Email = email
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, actor auth.Actor, current, next string) error {
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, user.ID, hash)
}

type PatientProfileInput struct {
	Address         *string `json:"address"`
	DateOfBirth     *string `json:"date_of_birth"`
	InsuranceNumber *string `json:"insurance_number"`
}

func (s *Service) UpdatePatientProfile(ctx context.Context, actor auth.Actor, in PatientProfileInput) (*PatientProfile, error) {
	if actor.PatientID == nil {
		return nil, ErrForbidden
	}
	profile, err := s.repo.GetPatientProfile(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.Address != nil {
		profile.Address = strings.TrimSpace(*in.Address)
	}
	if in.DateOfBirth != nil {
		if *in.DateOfBirth == "" {
			profile.DateOfBirth = nil
		} else {
			dob, err := time.Parse("2006-01-02", *in.DateOfBirth)
			if err != nil {
				return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrValidation)
			}
			profile.DateOfBirth = &dob
		}
	}
	if in.InsuranceNumber != nil {
		profile.InsuranceNumber = strings.TrimSpace(*in.InsuranceNumber)
	}
	if err := s.repo.UpdatePatientProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

type DoctorProfileInput struct {
	Specialty     *string `json:"specialty"`
	LicenseNumber *string `json:"license_number"`
	Address       *string `json:"address"`
}

func (s *Service) UpdateDoctorProfile(ctx context.Context, actor auth.Actor, in DoctorProfileInput) (*DoctorProfile, error) {
	if actor.DoctorID == nil {
		return nil, ErrForbidden
	}
	profile, err := s.repo.GetDoctorProfile(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.Specialty != nil {
		specialty := strings.TrimSpace(*in.Specialty)
		if specialty == "" {
			return nil, fmt.Errorf("%w: specialty cannot be empty", ErrValidation)
		}
		profile.Specialty = specialty
	}
	if in.LicenseNumber != nil {
		profile.LicenseNumber = strings.TrimSpace(*in.LicenseNumber)
	}
	if in.Address != nil {
		profile.Address = strings.TrimSpace(*in.Address)
	}
	if err := s.repo.UpdateDoctorProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Doctors is the public directory, optionally filtered by specialty.
func (s *Service) Doctors(ctx context.Context, specialty string, page pagination.Params) ([]*DoctorListing, int, error) {
	return s.repo.ListDoctors(ctx, strings.TrimSpace(specialty), page.Limit, page.Offset)
}

// Users lists accounts for administrators, optionally filtered by role.
func (s *Service) Users(ctx context.Context, actor auth.Actor, role string, page pagination.Params) ([]*User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	if role != "" && !auth.Role(role).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return s.repo.ListUsers(ctx, role, page.Limit, page.Offset)
}

func (s *Service) loadAccount(ctx context.Context, user *User) (*Account, error) {
	account := &Account{User: user}
	switch user.Role {
	case auth.RolePatient:
		profile, err := s.repo.GetPatientProfile(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load patient profile: %w", err)
		}
		account.Patient = profile
	case auth.RoleDoctor:
		profile, err := s.repo.GetDoctorProfile(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load doctor profile: %w", err)
		}
		account.Doctor = profile
	}
	return account, nil
}
