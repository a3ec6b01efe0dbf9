package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	// ErrDuplicateSlot is the store's unique-constraint rejection for an
	// active (doctor, instant) pair. It is the authoritative conflict
	// signal; the service's pre-check is only the friendly fast path.
	ErrDuplicateSlot = errors.New("active appointment already exists for slot")
)

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	// DoctorExists reports whether id references a user with the DOCTOR role.
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)

	// FindActiveBySlot returns the non-cancelled appointment for the exact
	// (doctor, instant) pair, or ErrAppointmentNotFound.
	FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error)

	// InsertScheduled creates a SCHEDULED appointment. It returns
	// ErrDuplicateSlot if the slot uniqueness constraint rejects the row.
	InsertScheduled(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	// UpdateStatus performs a compare-and-swap transition and returns
	// ErrAppointmentNotFound when no row is in the expected state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Listings are ordered by scheduled_at ascending.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error)
	ListAll(ctx context.Context) ([]Detail, error)
}
