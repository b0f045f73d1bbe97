package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/auth"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
)

// AuthHandler mints bearer tokens for deployments that run without an
// external identity provider. Only mounted in development.
type AuthHandler struct {
	provider *auth.JWTProvider
	userRepo repository.UserRepository
}

func NewAuthHandler(provider *auth.JWTProvider, userRepo repository.UserRepository) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		userRepo: userRepo,
	}
}

// MintToken issues a bearer token for the given uid/email, creating the
// user row on first sight.
func (h *AuthHandler) MintToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if req.UID == "" {
		respondError(w, r, fmt.Errorf("uid is required: %w", apperr.ErrInvalid))
		return
	}

	_, err = h.userRepo.ByID(req.UID)
	if errors.Is(err, repository.ErrUserNotFound) {
		err = h.userRepo.Create(&model.User{ID: req.UID, Email: req.Email})
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.provider.Mint(&model.Identity{UID: req.UID, Email: req.Email})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
