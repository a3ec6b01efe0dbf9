package records

import (
	"time"

	"github.com/google/uuid"
)

// PatientRecord is an uploaded medical document plus the set of users it has
// been shared with. Sharing is a plain membership set; add and remove are
// both idempotent.
type PatientRecord struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	Filename    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	Description string
	SharedWith  []uuid.UUID
	UploadedAt  time.Time
}

// SharedWithContains reports whether the record has been shared with id.
func (r *PatientRecord) SharedWithContains(id uuid.UUID) bool {
	for _, g := range r.SharedWith {
		if g == id {
			return true
		}
	}
	return false
}
