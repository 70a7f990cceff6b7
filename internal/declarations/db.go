package declarations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbStore struct {
	pool *pgxpool.Pool
}

// NewDBStore creates a database-backed declaration store.
func NewDBStore(pool *pgxpool.Pool) Store {
	return &dbStore{pool: pool}
}

const upsertQuery = `
INSERT INTO declaration (sence_code, participant_rut, participant_name, sessions_attended, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT declaration_course_participant_key
DO UPDATE SET
    participant_name  = EXCLUDED.participant_name,
    sessions_attended = EXCLUDED.sessions_attended,
    status            = EXCLUDED.status,
    updated_at        = now()
RETURNING id, sence_code, participant_rut, participant_name, sessions_attended, status, created_at, updated_at
`

func (d *dbStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	row := d.pool.QueryRow(ctx, upsertQuery,
		rec.SenceCode, rec.ParticipantRut, rec.ParticipantName, rec.SessionsAttended, rec.Status)

	var out Record
	err := row.Scan(&out.ID, &out.SenceCode, &out.ParticipantRut, &out.ParticipantName,
		&out.SessionsAttended, &out.Status, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("failed to upsert declaration for %s/%s: %w",
			rec.SenceCode, rec.ParticipantRut, err)
	}
	return out, nil
}

const listQuery = `
SELECT id, sence_code, participant_rut, participant_name, sessions_attended, status, created_at, updated_at
FROM declaration
WHERE sence_code = $1
ORDER BY participant_rut
`

func (d *dbStore) ListBySenceCode(ctx context.Context, senceCode string) ([]Record, error) {
	rows, err := d.pool.Query(ctx, listQuery, senceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list declarations for %s: %w", senceCode, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SenceCode, &rec.ParticipantRut, &rec.ParticipantName,
			&rec.SessionsAttended, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const getQuery = `
SELECT id, sence_code, participant_rut, participant_name, sessions_attended, status, created_at, updated_at
FROM declaration
WHERE sence_code = $1 AND participant_rut = $2
`

func (d *dbStore) Get(ctx context.Context, senceCode, participantRut string) (Record, error) {
	row := d.pool.QueryRow(ctx, getQuery, senceCode, participantRut)

	var rec Record
	err := row.Scan(&rec.ID, &rec.SenceCode, &rec.ParticipantRut, &rec.ParticipantName,
		&rec.SessionsAttended, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}
