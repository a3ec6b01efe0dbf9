package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.DoctorID,
		&d.ScheduledAt,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DoctorName,
		&d.DoctorSpecialization,
		&d.PatientName,
		&d.PatientEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &d, nil
}

const detailSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.status, a.created_at, a.updated_at,
	       d.name, d.specialization, p.name, p.email
	FROM appointments a
	JOIN users d ON d.id = a.doctor_id
	JOIN users p ON p.id = a.patient_id
`

func (r *PgRepository) queryDetails(ctx context.Context, query string, args ...any) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = 'DOCTOR')
	`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND scheduled_at = $2 AND status <> 'CANCELLED'
	`, doctorID, at)
	return scanAppointment(row)
}

func (r *PgRepository) InsertScheduled(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'SCHEDULED', now(), now())
		RETURNING id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
	`, id, patientID, doctorID, at)

	appt, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailSelect+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return r.queryDetails(ctx, detailSelect+` WHERE a.patient_id = $1 ORDER BY a.scheduled_at ASC`, patientID)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	return r.queryDetails(ctx, detailSelect+` WHERE a.doctor_id = $1 ORDER BY a.scheduled_at ASC`, doctorID)
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Detail, error) {
	return r.queryDetails(ctx, detailSelect+` ORDER BY a.scheduled_at ASC`)
}
