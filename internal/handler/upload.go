package handler

import (
	"net/http"

	"github.com/fileward/fileward/internal/ctxkeys"
	"github.com/fileward/fileward/internal/service"
)

type UploadHandler struct {
	quotaService *service.QuotaService
}

func NewUploadHandler(quotaService *service.QuotaService) *UploadHandler {
	return &UploadHandler{quotaService: quotaService}
}

// Validate is phase 1 of upload admission: quota precheck and validation
// token minting. The client uploads to storage afterwards, then confirms.
func (h *UploadHandler) Validate(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	var req struct {
		FileSize int64 `json:"fileSize"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.quotaService.Validate(identity.UID, req.FileSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Confirm is phase 2: reconcile the stored object against the validation
// and commit quota usage.
func (h *UploadHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	var req struct {
		ValidationToken string `json:"validationToken"`
		StoragePath     string `json:"storagePath"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.quotaService.Confirm(identity.UID, req.ValidationToken, req.StoragePath)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *UploadHandler) Usage(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	used, quota, err := h.quotaService.Usage(identity.UID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{
		"usedBytes":  used,
		"quotaBytes": quota,
	})
}
