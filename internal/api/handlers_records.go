package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/directory"
	"github.com/medihub/medihub-api/internal/identity"
	"github.com/medihub/medihub-api/internal/records"
)

// maxUploadBytes caps an uploaded record file at 32 MB.
const maxUploadBytes = 32 << 20

func uploadRecordHandler(svc RecordsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "could not parse multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_file", "a file part named \"file\" is required")
			return
		}
		defer file.Close()

		rec, err := svc.Create(r.Context(), principal, patientID, records.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Description: r.FormValue("description"),
			Content:     file,
		})
		if err != nil {
			handleRecordError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

func listRecordsHandler(svc RecordsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		recs, err := svc.ListFor(r.Context(), principal, patientID)
		if err != nil {
			handleRecordError(w, err)
			return
		}

		resp := make([]RecordResponse, 0, len(recs))
		for i := range recs {
			resp = append(resp, toRecordResponse(&recs[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func downloadRecordHandler(svc RecordsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
			return
		}

		recordID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_record_id", "id must be a valid UUID")
			return
		}

		rec, content, err := svc.Download(r.Context(), principal, recordID)
		if err != nil {
			handleRecordError(w, err)
			return
		}
		defer content.Close()

		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, content)
	}
}

func shareRecordHandler(svc RecordsService, dir DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, recordID, granteeID, ok := parseShareRequest(w, r)
		if !ok {
			return
		}

		// A grant to a user that does not exist would be invisible and
		// unrevokable from the grantee's side; reject it up front.
		if _, err := dir.Lookup(r.Context(), granteeID); err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "unknown_grantee", "grantee_id does not match a known user")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if err := svc.Share(r.Context(), principal, recordID, granteeID); err != nil {
			handleRecordError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "record shared"})
	}
}

func revokeRecordHandler(svc RecordsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, recordID, granteeID, ok := parseShareRequest(w, r)
		if !ok {
			return
		}

		if err := svc.Revoke(r.Context(), principal, recordID, granteeID); err != nil {
			handleRecordError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "access revoked"})
	}
}

// parseShareRequest pulls the caller, record id, and grantee id out of a
// share or revoke request, writing the error response itself on failure.
func parseShareRequest(w http.ResponseWriter, r *http.Request) (identity.Principal, uuid.UUID, uuid.UUID, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", "no caller identity")
		return identity.Principal{}, uuid.Nil, uuid.Nil, false
	}

	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_record_id", "id must be a valid UUID")
		return identity.Principal{}, uuid.Nil, uuid.Nil, false
	}

	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return identity.Principal{}, uuid.Nil, uuid.Nil, false
	}

	granteeID, err := uuid.Parse(req.GranteeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_grantee_id", "grantee_id must be a valid UUID")
		return identity.Principal{}, uuid.Nil, uuid.Nil, false
	}

	return principal, recordID, granteeID, true
}

func handleRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, records.ErrRecordNotFound), errors.Is(err, records.ErrBlobNotFound):
		writeError(w, http.StatusNotFound, "record_not_found", "record not found")
	case errors.Is(err, records.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "not_allowed", err.Error())
	case errors.Is(err, records.ErrInvalidUpload):
		writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
