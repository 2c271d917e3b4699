package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ db queryable }

// NewRepoPG returns a Repository backed by PostgreSQL.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{db: pool} }

const apptCols = `id, patient_id, doctor_id, timeslot, reason, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Timeslot, &a.Reason,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, timeslot, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+apptCols,
		a.ID, a.PatientID, a.DoctorID, a.Timeslot, a.Reason, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.db.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *filter.PatientID)
		idx++
	}
	if filter.DoctorID != nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *filter.DoctorID)
		idx++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, filter.Status)
		idx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY timeslot DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (*Appointment, error) {
	return scanAppointment(r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+apptCols,
		id, expected, next))
}

func (r *repoPG) UpdateFields(ctx context.Context, id uuid.UUID, expected Status, timeslot time.Time, reason string) (*Appointment, error) {
	return scanAppointment(r.db.QueryRow(ctx, `
		UPDATE appointments
		SET timeslot = $3, reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+apptCols,
		id, expected, timeslot, reason))
}

func (r *repoPG) GetParties(ctx context.Context, patientID, doctorID uuid.UUID) (*Parties, error) {
	var p Parties
	err := r.db.QueryRow(ctx, `
		SELECT pu.id, du.id,
			COALESCE(NULLIF(pu.full_name, ''), pu.username),
			COALESCE(NULLIF(du.full_name, ''), du.username)
		FROM patient_profiles pp
		JOIN users pu ON pu.id = pp.user_id
		JOIN doctor_profiles dp ON dp.id = $2
		JOIN users du ON du.id = dp.user_id
		WHERE pp.id = $1`,
		patientID, doctorID).
		Scan(&p.PatientUserID, &p.DoctorUserID, &p.PatientName, &p.DoctorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
