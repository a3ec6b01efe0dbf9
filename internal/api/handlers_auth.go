package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medihub/medihub-api/internal/identity"
)

func signupHandler(svc IdentityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		u, err := svc.Signup(r.Context(), req.Name, req.Email, req.Password, identity.Role(req.Role))
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrInvalidSignup):
				writeError(w, http.StatusBadRequest, "invalid_signup", err.Error())
			case errors.Is(err, identity.ErrEmailTaken):
				writeError(w, http.StatusConflict, "email_taken", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

func loginHandler(svc IdentityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		token, u, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserResponse(u)})
	}
}

func meHandler(svc IdentityService) http.HandlerFunc {
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
