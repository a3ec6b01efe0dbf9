package records

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/audit"
	"github.com/medihub/medihub-api/internal/identity"
)

var (
	ErrNotAllowed    = errors.New("caller may not access these records")
	ErrInvalidUpload = errors.New("a file with a filename is required")
)

// AuditLogger is the best-effort audit sink.
type AuditLogger interface {
	Record(ctx context.Context, actorID uuid.UUID, action, detail string)
}

type Service struct {
	repo  Repository
	blobs BlobStore
	audit AuditLogger
}

func NewService(repo Repository, blobs BlobStore, auditLog AuditLogger) *Service {
	return &Service{repo: repo, blobs: blobs, audit: auditLog}
}

// Upload describes an incoming file for a patient record.
type Upload struct {
	Filename    string
	ContentType string
	Description string
	Content     io.Reader
}

// Create stores the file content and its metadata row. Patients may upload
// only for themselves; doctors and admins may upload on a patient's behalf.
func (s *Service) Create(ctx context.Context, caller identity.Principal, patientID uuid.UUID, up Upload) (*PatientRecord, error) {
	if caller.Role == identity.RolePatient && caller.ID != patientID {
		return nil, ErrNotAllowed
	}
	if up.Filename == "" || up.Content == nil {
		return nil, ErrInvalidUpload
	}
	if up.ContentType == "" {
		up.ContentType = "application/octet-stream"
	}

	key := uuid.NewString()

	size, err := s.blobs.Put(ctx, key, up.Content)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	rec, err := s.repo.InsertRecord(ctx, &PatientRecord{
		PatientID:   patientID,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		SizeBytes:   size,
		StorageKey:  key,
		Description: up.Description,
	})
	if err != nil {
		_ = s.blobs.Remove(ctx, key)
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.audit.Record(ctx, caller.ID, audit.ActionUploadRecord,
		fmt.Sprintf("uploaded record %s (%s) for patient %s", rec.ID, rec.Filename, patientID))

	return rec, nil
}

// ListFor returns the records of patientID visible to the caller: the owner
// and admins see everything, doctors see what has been shared with them, and
// any other patient sees nothing.
func (s *Service) ListFor(ctx context.Context, caller identity.Principal, patientID uuid.UUID) ([]PatientRecord, error) {
	switch {
	case caller.ID == patientID:
		return s.repo.ListByPatient(ctx, patientID)
	case caller.Role == identity.RoleAdmin:
		return s.repo.ListByPatient(ctx, patientID)
	case caller.Role == identity.RoleDoctor:
		return s.repo.ListSharedWith(ctx, patientID, caller.ID)
	default:
		return nil, ErrNotAllowed
	}
}

// Share grants granteeID access to one of the caller's own records. Sharing
// an already-shared record is a no-op.
func (s *Service) Share(ctx context.Context, caller identity.Principal, recordID, granteeID uuid.UUID) error {
	rec, err := s.repo.GetOwnedRecord(ctx, recordID, caller.ID)
	if err != nil {
		return err
	}

	if err := s.repo.AddShare(ctx, rec.ID, granteeID); err != nil {
		return fmt.Errorf("share record: %w", err)
	}

	s.audit.Record(ctx, caller.ID, audit.ActionShareRecord,
		fmt.Sprintf("shared record %s (%s) with %s", rec.ID, rec.Filename, granteeID))

	return nil
}

// Revoke removes granteeID from a record's share set. Revoking a grant that
// does not exist is a no-op.
func (s *Service) Revoke(ctx context.Context, caller identity.Principal, recordID, granteeID uuid.UUID) error {
	rec, err := s.repo.GetOwnedRecord(ctx, recordID, caller.ID)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveShare(ctx, rec.ID, granteeID); err != nil {
		return fmt.Errorf("revoke record share: %w", err)
	}

	s.audit.Record(ctx, caller.ID, audit.ActionRevokeAccess,
		fmt.Sprintf("revoked access of %s to record %s (%s)", granteeID, rec.ID, rec.Filename))

	return nil
}

// Download opens the file content for a record the caller may read: the
// owner, a grantee, or an admin.
func (s *Service) Download(ctx context.Context, caller identity.Principal, recordID uuid.UUID) (*PatientRecord, io.ReadCloser, error) {
	rec, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}

	allowed := caller.ID == rec.PatientID ||
		caller.Role == identity.RoleAdmin ||
		rec.SharedWithContains(caller.ID)
	if !allowed {
		return nil, nil, ErrNotAllowed
	}

	content, err := s.blobs.Open(ctx, rec.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open record file: %w", err)
	}

	return rec, content, nil
}
