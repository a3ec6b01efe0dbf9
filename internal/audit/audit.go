package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	ActionBookAppointment   = "BOOK_APPOINTMENT"
	ActionCancelAppointment = "CANCEL_APPOINTMENT"
	ActionUploadRecord      = "UPLOAD_RECORD"
	ActionShareRecord       = "SHARE_RECORD"
	ActionRevokeAccess      = "REVOKE_ACCESS"
)

type Entry struct {
	ID        int64
	ActorID   *uuid.UUID
	Action    string
	Detail    string
	CreatedAt time.Time
}

type Repository interface {
	InsertEntry(ctx context.Context, e Entry) error
}

// Logger records audit entries best-effort. Failures are logged and
// swallowed; an audit outage must never fail the action being audited.
type Logger struct {
	repo Repository
	log  zerolog.Logger
}

func NewLogger(repo Repository, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

func (l *Logger) Record(ctx context.Context, actorID uuid.UUID, action, detail string) {
	actor := actorID

	e := Entry{
		ActorID:   &actor,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	if err := l.repo.InsertEntry(ctx, e); err != nil {
		l.log.Warn().
			Err(err).
			Str("action", action).
			Str("actor_id", actorID.String()).
			Msg("audit log write failed")
	}
}
