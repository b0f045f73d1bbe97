package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fileward/fileward/internal/apperr"
)

// errorResponse is the uniform error envelope for the API surface.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError translates service errors to the API error envelope. The
// message comes from the error taxonomy, never from internal error text;
// unrecognized errors log server-side and surface as a plain 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	respondJSON(w, status, errorResponse{Error: apperr.Message(err)})
}

// decodeJSON reads a request body into v, wrapping failures as Invalid.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return fmt.Errorf("malformed request body: %w", apperr.ErrInvalid)
	}
	return nil
}
