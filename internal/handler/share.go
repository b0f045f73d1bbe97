package handler

import (
	"net/http"
	"time"

	"github.com/fileward/fileward/internal/ctxkeys"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/service"
)

type ShareHandler struct {
	shareService    *service.ShareService
	accessService   *service.AccessService
	downloadService *service.DownloadService
	tokenService    *service.TokenService
}

func NewShareHandler(
	shareService *service.ShareService,
	accessService *service.AccessService,
	downloadService *service.DownloadService,
	tokenService *service.TokenService,
) *ShareHandler {
	return &ShareHandler{
		shareService:    shareService,
		accessService:   accessService,
		downloadService: downloadService,
		tokenService:    tokenService,
	}
}

type shareResponse struct {
	ShareID   string    `json:"shareId"`
	FileID    string    `json:"fileId"`
	CreatedAt time.Time `json:"createdAt"`
	Valid     bool      `json:"valid"`
	Revoked   bool      `json:"revoked"`
	BoundUID  *string   `json:"boundUid,omitempty"`
}

func shareOf(s *model.Share) shareResponse {
	return shareResponse{
		ShareID:   s.ID,
		FileID:    s.FileID,
		CreatedAt: s.CreatedAt,
		Valid:     s.Valid,
		Revoked:   s.Revoked,
		BoundUID:  s.BoundUID,
	}
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	var req struct {
		FileID string `json:"fileId"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	share, err := h.shareService.Create(identity.UID, req.FileID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, shareOf(share))
}

func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	shares, err := h.shareService.AllByOwner(identity.UID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, shareOf(s))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())
	shareID := r.PathValue("id")

	err := h.shareService.Revoke(identity.UID, shareID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Info resolves a share for an inbound visitor: universal validity checks
// plus the sanitized metadata view. No credential is needed to look.
func (h *ShareHandler) Info(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("id")

	view, err := h.shareService.Resolve(shareID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *ShareHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("id")

	var req struct {
		Pin string `json:"pin"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sessionToken, expiresIn, err := h.accessService.VerifyPin(shareID, req.Pin)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessionToken": sessionToken,
		"expiresIn":    expiresIn,
	})
}

func (h *ShareHandler) BindAccount(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())
	shareID := r.PathValue("id")

	err := h.accessService.BindAccount(shareID, identity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"bound": true})
}

// IssueDownloadURL runs mode verification and mints the single-use token.
// PIN and device modes present their session token in the body; account
// mode relies on the bearer identity.
func (h *ShareHandler) IssueDownloadURL(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("id")

	var req struct {
		SessionToken string `json:"sessionToken"`
	}
	// An empty body is fine for public and account shares.
	if r.ContentLength != 0 {
		err := decodeJSON(r, &req)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	creds := &service.Credentials{
		Identity: ctxkeys.Identity(r.Context()),
	}
	if req.SessionToken != "" {
		session, err := h.tokenService.VerifySession(req.SessionToken)
		if err != nil {
			respondError(w, r, err)
			return
		}
		creds.Session = session
	}

	result, err := h.downloadService.Issue(shareID, creds)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Received lists the files durably visible to the caller through account
// binding.
func (h *ShareHandler) Received(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	received, err := h.shareService.Received(identity.UID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, received)
}
