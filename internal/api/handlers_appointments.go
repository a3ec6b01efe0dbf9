package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/booking"
)

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		// Reject an unparseable timestamp before any conflict check runs.
		scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_at", "scheduled_at must be an RFC 3339 timestamp")
			return
		}

		detail, err := svc.Book(r.Context(), principal, doctorID, scheduledAt)
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(detail))
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		details, err := svc.List(r.Context(), principal)
		if err != nil {
			if errors.Is(err, booking.ErrRoleNotAllowed) {
				writeError(w, http.StatusForbidden, "role_not_allowed", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(details))
		for i := range details {
			resp = append(resp, toAppointmentResponse(&details[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), principal, id)
		if err != nil {
			handleCancelError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{
			ID:          appt.ID,
			PatientID:   appt.PatientID,
			DoctorID:    appt.DoctorID,
			ScheduledAt: appt.ScheduledAt,
			Status:      string(appt.Status),
			CreatedAt:   appt.CreatedAt,
		})
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidSchedule):
		writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusBadRequest, "unknown_doctor", err.Error())
	case errors.Is(err, booking.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "this time slot is already booked, please choose another time")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrCancelNotAllowed):
		writeError(w, http.StatusForbidden, "cancel_not_allowed", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
