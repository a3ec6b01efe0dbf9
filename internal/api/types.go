package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/booking"
	"github.com/medihub/medihub-api/internal/identity"
	"github.com/medihub/medihub-api/internal/records"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Address        *string   `json:"address,omitempty"`
	About          *string   `json:"about,omitempty"`
	Image          *string   `json:"image,omitempty"`
	Fee            int       `json:"fee"`
	Experience     *string   `json:"experience,omitempty"`
	Degree         *string   `json:"degree,omitempty"`
	Available      bool      `json:"available"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Specialization: u.Specialization,
		Phone:          u.Phone,
		Address:        u.Address,
		About:          u.About,
		Image:          u.Image,
		Fee:            u.Fee,
		Experience:     u.Experience,
		Degree:         u.Degree,
		Available:      u.Available,
		CreatedAt:      u.CreatedAt,
	}
}

type UpdateProfileRequest struct {
	Name           string  `json:"name"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	About          *string `json:"about"`
	Specialization *string `json:"specialization"`
	Image          *string `json:"image"`
}

type CreateAppointmentRequest struct {
	DoctorID    string `json:"doctor_id"`
	ScheduledAt string `json:"scheduled_at"`
}

type PartyResponse struct {
	Name           string  `json:"name"`
	Specialization *string `json:"specialization,omitempty"`
	Email          *string `json:"email,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID     `json:"id"`
	PatientID   uuid.UUID     `json:"patient_id"`
	DoctorID    uuid.UUID     `json:"doctor_id"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	Doctor      PartyResponse `json:"doctor"`
	Patient     PartyResponse `json:"patient"`
}

func toAppointmentResponse(d *booking.Detail) AppointmentResponse {
	return AppointmentResponse{
		ID:          d.ID,
		PatientID:   d.PatientID,
		DoctorID:    d.DoctorID,
		ScheduledAt: d.ScheduledAt,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		Doctor:      PartyResponse{Name: d.DoctorName, Specialization: d.DoctorSpecialization},
		Patient:     PartyResponse{Name: d.PatientName, Email: d.PatientEmail},
	}
}

type RecordResponse struct {
	ID          uuid.UUID   `json:"id"`
	PatientID   uuid.UUID   `json:"patient_id"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"content_type"`
	SizeBytes   int64       `json:"size_bytes"`
	Description string      `json:"description,omitempty"`
	SharedWith  []uuid.UUID `json:"shared_with"`
	UploadedAt  time.Time   `json:"uploaded_at"`
}

func toRecordResponse(rec *records.PatientRecord) RecordResponse {
	shared := rec.SharedWith
	if shared == nil {
		shared = []uuid.UUID{}
	}
	return RecordResponse{
		ID:          rec.ID,
		PatientID:   rec.PatientID,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		SizeBytes:   rec.SizeBytes,
		Description: rec.Description,
		SharedWith:  shared,
		UploadedAt:  rec.UploadedAt,
	}
}

type ShareRequest struct {
	GranteeID string `json:"grantee_id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
