package availability

import (
	"context"
	"errors"

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

const windowCols = `id, doctor_id, day, start_minute, end_minute, created_at, updated_at`

// dayOrderSQL sorts windows Monday first regardless of lexical order.
const dayOrderSQL = `CASE day
	WHEN 'monday' THEN 0 WHEN 'tuesday' THEN 1 WHEN 'wednesday' THEN 2
	WHEN 'thursday' THEN 3 WHEN 'friday' THEN 4 WHEN 'saturday' THEN 5
	ELSE 6 END`

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	err := row.Scan(&w.ID, &w.DoctorID, &w.Day, &w.Start, &w.End, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repoPG) Create(ctx context.Context, w *Window) error {
	w.ID = uuid.New()
	row := r.db.QueryRow(ctx, `
		INSERT INTO availability_windows (id, doctor_id, day, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+windowCols,
		w.ID, w.DoctorID, w.Day, w.Start, w.End)

	created, err := scanWindow(row)
	if err != nil {
		return err
	}
	*w = *created
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Window, error) {
	return scanWindow(r.db.QueryRow(ctx,
		`SELECT `+windowCols+` FROM availability_windows WHERE id = $1`, id))
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+windowCols+`
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY `+dayOrderSQL+`, start_minute`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, w *Window) error {
	row := r.db.QueryRow(ctx, `
		UPDATE availability_windows
		SET day = $2, start_minute = $3, end_minute = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+windowCols,
		w.ID, w.Day, w.Start, w.End)

	updated, err := scanWindow(row)
	if err != nil {
		return err
	}
	*w = *updated
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
