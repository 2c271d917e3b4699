package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepoPG holds the pool directly rather than a narrower query
// interface: CreateAccount needs Begin for its two-row transaction.
type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

const userCols = `id, username, full_name, email, phone, role, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Phone, &u.Role,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

const patientProfileCols = `id, user_id, address, date_of_birth, insurance_number, created_at, updated_at`

func scanPatientProfile(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(&p.ID, &p.UserID, &p.Address, &p.DateOfBirth, &p.InsuranceNumber,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan patient profile: %w", err)
	}
	return &p, nil
}

const doctorProfileCols = `id, user_id, specialty, license_number, address, created_at, updated_at`

func scanDoctorProfile(row pgx.Row) (*DoctorProfile, error) {
	var p DoctorProfile
	err := row.Scan(&p.ID, &p.UserID, &p.Specialty, &p.LicenseNumber, &p.Address,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan doctor profile: %w", err)
	}
	return &p, nil
}

// uniqueErr maps a unique-constraint violation onto the matching
// sentinel so the service layer never sees raw pg error codes.
func uniqueErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "username"):
			return ErrUsernameTaken
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrEmailTaken
		}
	}
	return err
}

func (r *RepoPG) CreateAccount(ctx context.Context, u *User, patient *PatientProfile, doctor *DoctorProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create account: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO users (username, full_name, email, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userCols,
		u.Username, u.FullName, u.Email, u.Phone, u.Role, u.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		return uniqueErr(err)
	}
	*u = *created

	switch {
	case patient != nil:
		patient.UserID = u.ID
		row := tx.QueryRow(ctx, `
			INSERT INTO patient_profiles (user_id, address, date_of_birth, insurance_number)
			VALUES ($1, $2, $3, $4)
			RETURNING `+patientProfileCols,
			patient.UserID, patient.Address, patient.DateOfBirth, patient.InsuranceNumber)
		p, err := scanPatientProfile(row)
		if err != nil {
			return err
		}
		*patient = *p
	case doctor != nil:
		doctor.UserID = u.ID
		row := tx.QueryRow(ctx, `
			INSERT INTO doctor_profiles (user_id, specialty, license_number, address)
			VALUES ($1, $2, $3, $4)
			RETURNING `+doctorProfileCols,
			doctor.UserID, doctor.Specialty, doctor.LicenseNumber, doctor.Address)
		p, err := scanDoctorProfile(row)
		if err != nil {
			return err
		}
		*doctor = *p
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create account: %w", err)
	}
	return nil
}

func (r *RepoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *RepoPG) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (r *RepoPG) UpdateUser(ctx context.Context, u *User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET full_name = $2, email = $3, phone = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userCols,
		u.ID, u.FullName, u.Email, u.Phone)
	updated, err := scanUser(row)
	if err != nil {
		return uniqueErr(err)
	}
	*u = *updated
	return nil
}

func (r *RepoPG) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) ListUsers(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	where := ""
	args := []any{}
	if role != "" {
		where = ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT `+userCols+` FROM users`+where+` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *RepoPG) GetPatientProfile(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+patientProfileCols+` FROM patient_profiles WHERE user_id = $1`, userID)
	return scanPatientProfile(row)
}

func (r *RepoPG) UpdatePatientProfile(ctx context.Context, p *PatientProfile) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE patient_profiles
		SET address = $2, date_of_birth = $3, insurance_number = $4, updated_at = now()
		WHERE user_id = $1
		RETURNING `+patientProfileCols,
		p.UserID, p.Address, p.DateOfBirth, p.InsuranceNumber)
	updated, err := scanPatientProfile(row)
	if err != nil {
		return err
	}
	*p = *updated
	return nil
}

func (r *RepoPG) GetDoctorProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+doctorProfileCols+` FROM doctor_profiles WHERE user_id = $1`, userID)
	return scanDoctorProfile(row)
}

func (r *RepoPG) UpdateDoctorProfile(ctx context.Context, p *DoctorProfile) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctor_profiles
		SET specialty = $2, license_number = $3, address = $4, updated_at = now()
		WHERE user_id = $1
		RETURNING `+doctorProfileCols,
		p.UserID, p.Specialty, p.LicenseNumber, p.Address)
	updated, err := scanDoctorProfile(row)
	if err != nil {
		return err
	}
	*p = *updated
	return nil
}

func (r *RepoPG) ListDoctors(ctx context.Context, specialty string, limit, offset int) ([]*DoctorListing, int, error) {
	where := ""
	args := []any{}
	if specialty != "" {
		where = ` WHERE dp.specialty ILIKE $1`
		args = append(args, "%"+specialty+"%")
	}

	var total int
	countSQL := `SELECT count(*) FROM doctor_profiles dp` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT dp.id, dp.user_id, COALESCE(NULLIF(u.full_name, ''), u.username), dp.specialty, dp.address
		FROM doctor_profiles dp
		JOIN users u ON u.id = dp.user_id`+where+`
		ORDER BY u.full_name ASC LIMIT $%d OFFSET $%d`,
		len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var listings []*DoctorListing
	for rows.Next() {
		var d DoctorListing
		if err := rows.Scan(&d.ProfileID, &d.UserID, &d.FullName, &d.Specialty, &d.Address); err != nil {
			return nil, 0, fmt.Errorf("scan doctor listing: %w", err)
		}
		listings = append(listings, &d)
	}
	return listings, total, rows.Err()
}
