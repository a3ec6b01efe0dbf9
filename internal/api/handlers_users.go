package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/directory"
	"github.com/medihub/medihub-api/internal/identity"
)

func listDoctorsHandler(svc DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialization := r.URL.Query().Get("specialization")

		doctors, err := svc.ListDoctors(r.Context(), specialization)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if doctors == nil {
			doctors = []directory.Doctor{}
		}
		writeJSON(w, http.StatusOK, doctors)
	}
}

func getDoctorHandler(svc DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doctor, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, doctor)
	}
}

func getProfileHandler(svc IdentityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		u, err := svc.GetUser(r.Context(), principal.ID)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func updateProfileHandler(svc IdentityService, dir DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		u, err := svc.UpdateProfile(r.Context(), principal.ID, identity.ProfileUpdate{
			Name:           req.Name,
			Phone:          req.Phone,
			Address:        req.Address,
			About:          req.About,
			Specialization: req.Specialization,
			Image:          req.Image,
		})
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		// Cached directory views of this user are now stale.
		dir.Invalidate(r.Context(), principal.ID)

		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}
