package handler

import (
	"net/http"
	"time"

	"github.com/fileward/fileward/internal/ctxkeys"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/service"
)

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

type fileResponse struct {
	FileID             string    `json:"fileId"`
	Name               string    `json:"name"`
	Size               int64     `json:"size"`
	ContentType        string    `json:"contentType"`
	ShareMode          string    `json:"shareMode"`
	MaxDownloads       *int64    `json:"maxDownloads,omitempty"`
	RemainingDownloads int64     `json:"remainingDownloads"`
	ExpiresAt          time.Time `json:"expiresAt"`
	Revoked            bool      `json:"revoked"`
	CreatedAt          time.Time `json:"createdAt"`
}

func fileOf(f *model.File) fileResponse {
	return fileResponse{
		FileID:             f.ID,
		Name:               f.Name,
		Size:               f.Size,
		ContentType:        f.ContentType,
		ShareMode:          string(f.ShareMode),
		MaxDownloads:       f.MaxDownloads,
		RemainingDownloads: f.RemainingDownloads,
		ExpiresAt:          f.ExpiresAt,
		Revoked:            f.Revoked,
		CreatedAt:          f.CreatedAt,
	}
}

// Create registers a confirmed upload with its sharing policy. The raw PIN
// only exists in this request; it is hashed before anything persists.
func (h *FileHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	var req struct {
		Name         string    `json:"name"`
		StoragePath  string    `json:"storagePath"`
		ContentType  string    `json:"contentType"`
		ShareMode    string    `json:"shareMode"`
		Pin          string    `json:"pin,omitempty"`
		MaxDownloads *int64    `json:"maxDownloads,omitempty"`
		ExpiresAt    time.Time `json:"expiresAt"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	file, err := h.fileService.Create(identity.UID, &service.CreateFileInput{
		Name:         req.Name,
		StoragePath:  req.StoragePath,
		ContentType:  req.ContentType,
		ShareMode:    model.ShareMode(req.ShareMode),
		Pin:          req.Pin,
		MaxDownloads: req.MaxDownloads,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, fileOf(file))
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	files, err := h.fileService.AllByOwner(identity.UID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileOf(f))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *FileHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())
	fileID := r.PathValue("id")

	err := h.fileService.Revoke(identity.UID, fileID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
