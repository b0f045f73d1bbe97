package service

import (
	"fmt"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
	"github.com/fileward/fileward/internal/webauthn"
)

// AccessService runs the mode-specific verification state machines. Each
// mode is a ModeVerifier; dispatch goes through an exhaustive switch on the
// closed mode set, so adding a mode without wiring a verifier is a compile
// error here rather than a silent fallthrough at runtime.
type AccessService struct {
	shares        *ShareService
	shareRepo     repository.ShareRepository
	deviceRepo    repository.DeviceRepository
	challengeRepo repository.ChallengeRepository
	tokens        *TokenService
	webauthn      webauthn.Verifier
	audit         *AuditService

	origin           string
	pinSessionTTL    time.Duration
	deviceSessionTTL time.Duration
}

func NewAccessService(
	shares *ShareService,
	shareRepo repository.ShareRepository,
	deviceRepo repository.DeviceRepository,
	challengeRepo repository.ChallengeRepository,
	tokens *TokenService,
	webauthnVerifier webauthn.Verifier,
	audit *AuditService,
	origin string,
	pinSessionTTL time.Duration,
	deviceSessionTTL time.Duration,
) *AccessService {
	return &AccessService{
		shares:           shares,
		shareRepo:        shareRepo,
		deviceRepo:       deviceRepo,
		challengeRepo:    challengeRepo,
		tokens:           tokens,
		webauthn:         webauthnVerifier,
		audit:            audit,
		origin:           origin,
		pinSessionTTL:    pinSessionTTL,
		deviceSessionTTL: deviceSessionTTL,
	}
}

// Credentials is whatever supplementary material accompanied a request: a
// previously minted session token, an authenticated identity, or neither.
type Credentials struct {
	Session  *SessionClaims
	Identity *model.Identity
}

// ModeVerifier decides whether the presented credentials satisfy one trust
// model for the given share+file pair.
type ModeVerifier interface {
	Authorize(s *AccessService, share *model.Share, file *model.File, creds *Credentials) error
}

// verifierFor is the single dispatch point over the closed mode set.
func verifierFor(mode model.ShareMode) (ModeVerifier, error) {
	switch mode {
	case model.ModePublic:
		return publicVerifier{}, nil
	case model.ModePin:
		return pinVerifier{}, nil
	case model.ModeDevice:
		return deviceVerifier{}, nil
	case model.ModeAccount:
		return accountVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown share mode %q: %w", mode, apperr.ErrInvalid)
	}
}

// Authorize resolves the share and runs the verifier for its mode. This is
// the gate in front of download-token issuance.
func (s *AccessService) Authorize(shareID string, creds *Credentials) (*model.Share, *model.File, error) {
	share, file, err := s.shares.resolve(shareID)
	if err != nil {
		return nil, nil, err
	}

	verifier, err := verifierFor(file.ShareMode)
	if err != nil {
		return nil, nil, err
	}

	err = verifier.Authorize(s, share, file, creds)
	if err != nil {
		return nil, nil, err
	}

	return share, file, nil
}

// publicVerifier: an open link needs no supplementary secret.
type publicVerifier struct{}

func (publicVerifier) Authorize(_ *AccessService, _ *model.Share, _ *model.File, _ *Credentials) error {
	return nil
}

// pinVerifier accepts only a session token minted by a prior successful
// PIN verification for this exact share and file.
type pinVerifier struct{}

func (pinVerifier) Authorize(_ *AccessService, share *model.Share, file *model.File, creds *Credentials) error {
	return requireSession(creds, share, file, model.ModePin, "PIN required")
}

// deviceVerifier accepts only a session token minted by a prior successful
// device assertion for this exact share and file.
type deviceVerifier struct{}

func (deviceVerifier) Authorize(_ *AccessService, share *model.Share, file *model.File, creds *Credentials) error {
	return requireSession(creds, share, file, model.ModeDevice, "device verification required")
}

// accountVerifier binds on first contact (single writer wins) and is
// idempotent for the bound identity ever after.
type accountVerifier struct{}

func (accountVerifier) Authorize(s *AccessService, share *model.Share, file *model.File, creds *Credentials) error {
	if creds == nil || creds.Identity == nil {
		return fmt.Errorf("sign-in required: %w", apperr.ErrUnauthorized)
	}
	return s.bind(share, file, creds.Identity.UID)
}

func requireSession(creds *Credentials, share *model.Share, file *model.File, mode model.ShareMode, hint string) error {
	if creds == nil || creds.Session == nil {
		return fmt.Errorf("%s: %w", hint, apperr.ErrUnauthorized)
	}
	session := creds.Session
	if session.Mode != mode || session.ShareID != share.ID || session.FileID != file.ID {
		return fmt.Errorf("session does not match this share: %w", apperr.ErrUnauthorized)
	}
	return nil
}
