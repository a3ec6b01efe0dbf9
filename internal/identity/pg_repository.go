package identity

import (
	"context"
	"errors"

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

const userColumns = `id, name, email, password_hash, role, specialization, phone, address, about, image,
	fee, experience, degree, available, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Specialization,
		&u.Phone,
		&u.Address,
		&u.About,
		&u.Image,
		&u.Fee,
		&u.Experience,
		&u.Degree,
		&u.Available,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (r *PgRepository) CreateUser(ctx context.Context, u *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+userColumns+`
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *PgRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $2,
		    phone = $3,
		    address = $4,
		    about = $5,
		    specialization = $6,
		    image = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, upd.Name, upd.Phone, upd.Address, upd.About, upd.Specialization, upd.Image)

	return scanUser(row)
}
