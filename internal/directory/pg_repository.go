package directory

import (
	"context"
	"errors"

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

func (r *PgRepository) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var e Entry

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, role, specialization, email
		FROM users
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &e.Role, &e.Specialization, &e.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &e, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.About,
		&d.Image,
		&d.Fee,
		&d.Experience,
		&d.Degree,
		&d.Available,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &d, nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, about, image, fee, experience, degree, available, created_at
		FROM users
		WHERE id = $1 AND role = 'DOCTOR'
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context, specialization string) ([]Doctor, error) {
	query := `
		SELECT id, name, specialization, about, image, fee, experience, degree, available, created_at
		FROM users
		WHERE role = 'DOCTOR'
	`
	args := []any{}
	if specialization != "" {
		query += ` AND specialization = $1`
		args = append(args, specialization)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
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
