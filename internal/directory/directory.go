// Package directory is the read side of the user base: display info joined
// onto appointments, and the public doctor listings patients browse.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("directory entry not found")

// Entry is the minimal display view of a user.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization,omitempty"`
	Email          *string   `json:"email,omitempty"`
}

// Doctor is the public doctor profile shown on the browse pages.
type Doctor struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization *string   `json:"specialization,omitempty"`
	About          *string   `json:"about,omitempty"`
	Image          *string   `json:"image,omitempty"`
	Fee            int       `json:"fee"`
	Experience     *string   `json:"experience,omitempty"`
	Degree         *string   `json:"degree,omitempty"`
	Available      bool      `json:"available"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository contains the read-only user lookups.
type Repository interface {
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context, specialization string) ([]Doctor, error)
}
