package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("record not found")

// Repository contains all DB interactions needed by the records service.
type Repository interface {
	InsertRecord(ctx context.Context, rec *PatientRecord) (*PatientRecord, error)

	// GetRecord returns the record with its share set loaded.
	GetRecord(ctx context.Context, id uuid.UUID) (*PatientRecord, error)

	// GetOwnedRecord returns the record only when ownerID owns it; a record
	// owned by someone else is reported as ErrRecordNotFound, matching the
	// "not yours, not visible" contract.
	GetOwnedRecord(ctx context.Context, id, ownerID uuid.UUID) (*PatientRecord, error)

	// Listings are ordered by uploaded_at descending.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]PatientRecord, error)
	ListSharedWith(ctx context.Context, patientID, granteeID uuid.UUID) ([]PatientRecord, error)

	// AddShare and RemoveShare are idempotent set mutations.
	AddShare(ctx context.Context, recordID, granteeID uuid.UUID) error
	RemoveShare(ctx context.Context, recordID, granteeID uuid.UUID) error
}
