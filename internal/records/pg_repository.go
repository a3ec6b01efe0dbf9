package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const recordSelect = `
	SELECT r.id, r.patient_id, r.filename, r.content_type, r.size_bytes, r.storage_key,
	       r.description, r.uploaded_at,
	       COALESCE(array_agg(s.grantee_id) FILTER (WHERE s.grantee_id IS NOT NULL), '{}')
	FROM patient_records r
	LEFT JOIN record_shares s ON s.record_id = r.id
`

func scanRecord(row pgx.Row) (*PatientRecord, error) {
	var rec PatientRecord

	err := row.Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.Filename,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.StorageKey,
		&rec.Description,
		&rec.UploadedAt,
		&rec.SharedWith,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &rec, nil
}

func (r *PgRepository) queryRecords(ctx context.Context, query string, args ...any) ([]PatientRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PatientRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertRecord(ctx context.Context, rec *PatientRecord) (*PatientRecord, error) {
	id := uuid.New()

	var created PatientRecord
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patient_records (id, patient_id, filename, content_type, size_bytes, storage_key, description, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, patient_id, filename, content_type, size_bytes, storage_key, description, uploaded_at
	`, id, rec.PatientID, rec.Filename, rec.ContentType, rec.SizeBytes, rec.StorageKey, rec.Description).Scan(
		&created.ID,
		&created.PatientID,
		&created.Filename,
		&created.ContentType,
		&created.SizeBytes,
		&created.StorageKey,
		&created.Description,
		&created.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert patient record: %w", err)
	}

	created.SharedWith = []uuid.UUID{}
	return &created, nil
}

func (r *PgRepository) GetRecord(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	row := r.pool.QueryRow(ctx, recordSelect+`
		WHERE r.id = $1
		GROUP BY r.id
	`, id)
	return scanRecord(row)
}

func (r *PgRepository) GetOwnedRecord(ctx context.Context, id, ownerID uuid.UUID) (*PatientRecord, error) {
	row := r.pool.QueryRow(ctx, recordSelect+`
		WHERE r.id = $1 AND r.patient_id = $2
		GROUP BY r.id
	`, id, ownerID)
	return scanRecord(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]PatientRecord, error) {
	return r.queryRecords(ctx, recordSelect+`
		WHERE r.patient_id = $1
		GROUP BY r.id
		ORDER BY r.uploaded_at DESC
	`, patientID)
}

func (r *PgRepository) ListSharedWith(ctx context.Context, patientID, granteeID uuid.UUID) ([]PatientRecord, error) {
	return r.queryRecords(ctx, recordSelect+`
		WHERE r.patient_id = $1
		  AND r.id IN (SELECT record_id FROM record_shares WHERE grantee_id = $2)
		GROUP BY r.id
		ORDER BY r.uploaded_at DESC
	`, patientID, granteeID)
}

func (r *PgRepository) AddShare(ctx context.Context, recordID, granteeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO record_shares (record_id, grantee_id)
		VALUES ($1, $2)
		ON CONFLICT (record_id, grantee_id) DO NOTHING
	`, recordID, granteeID)
	if err != nil {
		return fmt.Errorf("add record share: %w", err)
	}
	return nil
}

func (r *PgRepository) RemoveShare(ctx context.Context, recordID, granteeID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM record_shares
		WHERE record_id = $1 AND grantee_id = $2
	`, recordID, granteeID)
	if err != nil {
		return fmt.Errorf("remove record share: %w", err)
	}
	return nil
}
