package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/repository"
)

const maxImageBytes = 10 << 20

func (r *Router) handleUploadDocument(w http.ResponseWriter, req *http.Request) {
	filename, content, ok := readUpload(w, req, "id_document")
	if !ok {
		return
	}
	v, err := r.services.Verification.UploadDocument(req.Context(), getUserID(req.Context()), filename, content)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"verification_id": v.ID,
		"extracted_data": map[string]string{
			"document_type":   v.DocumentType,
			"document_number": v.DocumentNumber,
			"full_name":       v.FullName,
			"date_of_birth":   v.DateOfBirth,
		},
	})
}

func (r *Router) handleUploadSelfie(w http.ResponseWriter, req *http.Request) {
	filename, content, ok := readUpload(w, req, "selfie")
	if !ok {
		return
	}
	v, err := r.services.Verification.UploadSelfie(req.Context(), getUserID(req.Context()), filename, content)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "success",
		"verification_id":     v.ID,
		"verification_status": string(v.Status),
	})
}

func (r *Router) handleVerificationStatus(w http.ResponseWriter, req *http.Request) {
	v, err := r.services.Verification.Status(req.Context(), getUserID(req.Context()))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "No verification found.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"verification": v.Record(),
	})
}

// readUpload pulls one image file out of a multipart request. On
// failure it has already written the rejection.
func readUpload(w http.ResponseWriter, req *http.Request, field string) (filename string, content []byte, ok bool) {
	if err := req.ParseMultipartForm(maxImageBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form data")
		return "", nil, false
	}
	file, header, err := req.FormFile(field)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{field: {"This field is required."}})
		return "", nil, false
	}
	defer file.Close()
	content, err = io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "unreadable upload")
		return "", nil, false
	}
	return header.Filename, content, true
}
