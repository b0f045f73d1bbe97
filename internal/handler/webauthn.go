package handler

import (
	"net/http"

	"github.com/fileward/fileward/internal/ctxkeys"
	"github.com/fileward/fileward/internal/service"
	"github.com/fileward/fileward/internal/webauthn"
)

type WebAuthnHandler struct {
	accessService *service.AccessService
}

func NewWebAuthnHandler(accessService *service.AccessService) *WebAuthnHandler {
	return &WebAuthnHandler{accessService: accessService}
}

func (h *WebAuthnHandler) StartRegistration(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("id")

	options, err := h.accessService.StartRegistration(shareID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, options)
}

func (h *WebAuthnHandler) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())
	shareID := r.PathValue("id")

	var response webauthn.RegistrationResponse
	err := decodeJSON(r, &response)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sessionToken, err := h.accessService.FinishRegistration(shareID, identity, &response)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessionToken": sessionToken,
	})
}

func (h *WebAuthnHandler) StartAssertion(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("id")

	options, err := h.accessService.StartAssertion(shareID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, options)
}

func (h *WebAuthnHandler) FinishAssertion(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())
	shareID := r.PathValue("id")

	var response webauthn.AssertionResponse
	err := decodeJSON(r, &response)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sessionToken, err := h.accessService.FinishAssertion(shareID, identity, &response)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessionToken": sessionToken,
	})
}
