package identity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Specialization *string
	Phone          *string
	Address        *string
	About          *string
	Image          *string
	Fee            int
	Experience     *string
	Degree         *string
	Available      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Principal is the verified caller identity attached to each request.
// It is passed explicitly; nothing reads it from ambient state.
type Principal struct {
	ID    uuid.UUID
	Role  Role
	Email string
}

// ProfileUpdate carries the caller-editable profile fields.
type ProfileUpdate struct {
	Name           string
	Phone          *string
	Address        *string
	About          *string
	Specialization *string
	Image          *string
}
