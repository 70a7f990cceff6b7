package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbStore struct {
	pool *pgxpool.Pool
}

// NewDBStore creates a database-backed course store.
func NewDBStore(pool *pgxpool.Pool) Store {
	return &dbStore{pool: pool}
}

const createQuery = `
INSERT INTO course (name, sence_code, contact_email)
VALUES ($1, $2, $3)
RETURNING id, name, sence_code, contact_email, created_at, updated_at
`

func (d *dbStore) Create(ctx context.Context, params CreateParams) (Record, error) {
	row := d.pool.QueryRow(ctx, createQuery, params.Name, params.SenceCode, params.ContactEmail)

	rec, err := scanCourse(row)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create course: %w", err)
	}
	return rec, nil
}

const updateQuery = `
UPDATE course
SET name          = COALESCE($2, name),
    sence_code    = COALESCE($3, sence_code),
    contact_email = COALESCE($4, contact_email),
    updated_at    = now()
WHERE id = $1
RETURNING id, name, sence_code, contact_email, created_at, updated_at
`

func (d *dbStore) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (Record, error) {
	row := d.pool.QueryRow(ctx, updateQuery, id, params.Name, params.SenceCode, params.ContactEmail)

	rec, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to update course %s: %w", id, err)
	}
	return rec, nil
}

const getQuery = `
SELECT id, name, sence_code, contact_email, created_at, updated_at
FROM course
WHERE id = $1
`

func (d *dbStore) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, err := scanCourse(d.pool.QueryRow(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

const listQuery = `
SELECT id, name, sence_code, contact_email, created_at, updated_at
FROM course
ORDER BY created_at
`

func (d *dbStore) List(ctx context.Context) ([]Record, error) {
	rows, err := d.pool.Query(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.SenceCode, &rec.ContactEmail,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanCourse(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Name, &rec.SenceCode, &rec.ContactEmail,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
