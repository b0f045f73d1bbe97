package handler

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/service"
	"github.com/fileward/fileward/internal/storage"
)

type DownloadHandler struct {
	downloadService *service.DownloadService
	storage         storage.Storage
}

func NewDownloadHandler(downloadService *service.DownloadService, store storage.Storage) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
		storage:         store,
	}
}

// Stream redeems a download token and streams the object. The token is
// consumed before the first byte leaves; an interrupted transfer does not
// revive it.
func (h *DownloadHandler) Stream(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		respondError(w, r, fmt.Errorf("missing token parameter: %w", apperr.ErrInvalid))
		return
	}

	redemption, err := h.downloadService.Redeem(tokenValue)
	if err != nil {
		respondError(w, r, err)
		return
	}

	object, err := h.storage.Open(redemption.StoragePath)
	if err != nil {
		respondError(w, r, fmt.Errorf("failed to open stored object: %w", err))
		return
	}
	defer object.Close()

	contentType := redemption.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": redemption.Name}))
	if redemption.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(redemption.Size, 10))
	}

	_, err = io.Copy(w, object)
	if err != nil {
		// Headers are gone; nothing to send but a log line.
		slog.Warn("download stream interrupted", "error", err, "file_id", redemption.FileID)
	}
}
