package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/audit"
	"github.com/medihub/medihub-api/internal/identity"
)

var (
	ErrSlotConflict            = errors.New("time slot is already booked")
	ErrInvalidSchedule         = errors.New("a valid doctor and appointment time are required")
	ErrRoleNotAllowed          = errors.New("role is not allowed to list appointments")
	ErrCancelNotAllowed        = errors.New("caller may not cancel this appointment")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// AuditLogger is the best-effort audit sink. Implementations must never
// propagate their own failures.
type AuditLogger interface {
	Record(ctx context.Context, actorID uuid.UUID, action, detail string)
}

type Service struct {
	repo  Repository
	audit AuditLogger
}

func NewService(repo Repository, auditLog AuditLogger) *Service {
	return &Service{repo: repo, audit: auditLog}
}

// Book reserves the exact (doctor, instant) slot for the calling patient.
//
// Conflicts are checked twice: a pre-read gives the common case a clean
// answer, and the store's partial unique index on active appointments is the
// authoritative arbiter when two requests race. Either signal becomes
// ErrSlotConflict.
func (s *Service) Book(ctx context.Context, caller identity.Principal, doctorID uuid.UUID, at time.Time) (*Detail, error) {
	if doctorID == uuid.Nil || at.IsZero() {
		return nil, ErrInvalidSchedule
	}

	// Slots are exact instants; normalize so equal wall-clock times in
	// different zones collide as intended.
	at = at.UTC()

	exists, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	existing, err := s.repo.FindActiveBySlot(ctx, doctorID, at)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if existing != nil {
		return nil, ErrSlotConflict
	}

	appt, err := s.repo.InsertScheduled(ctx, caller.ID, doctorID, at)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			return nil, ErrSlotConflict
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.audit.Record(ctx, caller.ID, audit.ActionBookAppointment,
		fmt.Sprintf("booked appointment %s with doctor %s at %s", appt.ID, doctorID, at.Format(time.RFC3339)))

	detail, err := s.repo.GetDetail(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("load appointment detail: %w", err)
	}

	return detail, nil
}

// List returns the appointments visible to the caller, ordered by scheduled
// time ascending. The role-to-visibility mapping is exhaustive: patients see
// their own bookings, doctors their own schedule, admins everything, and any
// other role is rejected outright.
func (s *Service) List(ctx context.Context, caller identity.Principal) ([]Detail, error) {
	switch caller.Role {
	case identity.RolePatient:
		return s.repo.ListByPatient(ctx, caller.ID)
	case identity.RoleDoctor:
		return s.repo.ListByDoctor(ctx, caller.ID)
	case identity.RoleAdmin:
		return s.repo.ListAll(ctx)
	default:
		return nil, ErrRoleNotAllowed
	}
}

// Cancel moves a SCHEDULED appointment to CANCELLED, freeing its slot.
// The booking patient, the booked doctor, and admins may cancel.
func (s *Service) Cancel(ctx context.Context, caller identity.Principal, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := caller.ID == appt.PatientID ||
		caller.ID == appt.DoctorID ||
		caller.Role == identity.RoleAdmin
	if !allowed {
		return nil, ErrCancelNotAllowed
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row exists but is no longer SCHEDULED.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.audit.Record(ctx, caller.ID, audit.ActionCancelAppointment,
		fmt.Sprintf("cancelled appointment %s", id))

	return updated, nil
}
