package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medihub/medihub-api/internal/booking"
	"github.com/medihub/medihub-api/internal/directory"
	"github.com/medihub/medihub-api/internal/identity"
	"github.com/medihub/medihub-api/internal/records"
)

// Service contracts the handlers depend on. The concrete services in
// internal/* satisfy them; tests substitute stubs.

type BookingService interface {
	Book(ctx context.Context, caller identity.Principal, doctorID uuid.UUID, at time.Time) (*booking.Detail, error)
	List(ctx context.Context, caller identity.Principal) ([]booking.Detail, error)
	Cancel(ctx context.Context, caller identity.Principal, id uuid.UUID) (*booking.Appointment, error)
}

type IdentityService interface {
	Signup(ctx context.Context, name, email, password string, role identity.Role) (*identity.User, error)
	Login(ctx context.Context, email, password string) (string, *identity.User, error)
	Verify(token string) (identity.Principal, error)
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd identity.ProfileUpdate) (*identity.User, error)
}

type DirectoryService interface {
	Lookup(ctx context.Context, id uuid.UUID) (*directory.Entry, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
	ListDoctors(ctx context.Context, specialization string) ([]directory.Doctor, error)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type RecordsService interface {
	Create(ctx context.Context, caller identity.Principal, patientID uuid.UUID, up records.Upload) (*records.PatientRecord, error)
	ListFor(ctx context.Context, caller identity.Principal, patientID uuid.UUID) ([]records.PatientRecord, error)
	Share(ctx context.Context, caller identity.Principal, recordID, granteeID uuid.UUID) error
	Revoke(ctx context.Context, caller identity.Principal, recordID, granteeID uuid.UUID) error
	Download(ctx context.Context, caller identity.Principal, recordID uuid.UUID) (*records.PatientRecord, io.ReadCloser, error)
}

type RouterConfig struct {
	Booking   BookingService
	Identity  IdentityService
	Directory DirectoryService
	Records   RecordsService
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public endpoints
	r.Post("/auth/signup", signupHandler(cfg.Identity))
	r.Post("/auth/login", loginHandler(cfg.Identity))
	r.Get("/users/doctors/{id}", getDoctorHandler(cfg.Directory))

	// Everything below requires a verified caller identity.
	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.Identity))

		pr.Get("/auth/me", meHandler(cfg.Identity))

		pr.Post("/appointments", createAppointmentHandler(cfg.Booking))
		pr.Get("/appointments", listAppointmentsHandler(cfg.Booking))
		pr.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))

		pr.Get("/users/doctors", listDoctorsHandler(cfg.Directory))
		pr.Get("/users/profile", getProfileHandler(cfg.Identity))
		pr.Put("/users/profile", updateProfileHandler(cfg.Identity, cfg.Directory))

		pr.Post("/patients/{id}/records", uploadRecordHandler(cfg.Records))
		pr.Get("/patients/{id}/records", listRecordsHandler(cfg.Records))
		pr.Get("/records/{id}/download", downloadRecordHandler(cfg.Records))
		pr.Post("/records/{id}/share", shareRecordHandler(cfg.Records, cfg.Directory))
		pr.Post("/records/{id}/revoke", revokeRecordHandler(cfg.Records))
	})

	return r
}
