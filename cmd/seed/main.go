package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/medihub/medihub-api/internal/db"
)

// Every seeded account gets the same demo password.
const seedPassword = "password123"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	// Hash once and share it, bcrypt per row would make seeding crawl.
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	if err := seedDoctors(context.Background(), pool, string(hash), 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, string(hash), 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
	log.Printf("seeding %d doctors", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		email := gofakeit.Email()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		fee := gofakeit.Number(300, 1500)
		experience := gofakeit.Number(1, 30)

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, role, specialization, fee, experience, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'DOCTOR', $5, $6, $7 || ' years', now(), now())
			ON CONFLICT (email) DO NOTHING
		`, id, name, email, passwordHash, spec, fee, experience)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, password_hash, role, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, 'PATIENT', $5, now(), now())
				ON CONFLICT (email) DO NOTHING
			`, id, name, email, passwordHash, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
