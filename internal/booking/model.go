package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ScheduledAt time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Detail is an appointment joined with the display fields of both parties.
type Detail struct {
	Appointment
	DoctorName           string
	DoctorSpecialization *string
	PatientName          string
	PatientEmail         *string
}
