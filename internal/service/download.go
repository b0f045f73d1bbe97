package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
)

// IssueResult is the issue-download-url response: a redemption path and how
// long it stays redeemable.
type IssueResult struct {
	DownloadURL        string `json:"downloadUrl"`
	ExpiresIn          int    `json:"expiresIn"`
	RemainingDownloads *int64 `json:"remainingDownloads,omitempty"`
}

// Redemption is what the streaming endpoint needs once a token has been
// consumed: where the bytes live and how to label them.
type Redemption struct {
	FileID      string
	ShareID     string
	StoragePath string
	Name        string
	ContentType string
	Size        int64
}

// DownloadService mints and redeems single-use download tokens. Issuance
// reserves nothing; redemption is the only point where download quota is
// charged.
type DownloadService struct {
	access    *AccessService
	tokenRepo repository.DownloadTokenRepository
	fileRepo  repository.FileRepository
	tokens    *TokenService
	audit     *AuditService
}

func NewDownloadService(
	access *AccessService,
	tokenRepo repository.DownloadTokenRepository,
	fileRepo repository.FileRepository,
	tokens *TokenService,
	audit *AuditService,
) *DownloadService {
	return &DownloadService{
		access:    access,
		tokenRepo: tokenRepo,
		fileRepo:  fileRepo,
		tokens:    tokens,
		audit:     audit,
	}
}

// Issue authorizes the request for the share's mode and mints a single-use
// token bound to this exact share+file pair. The max/remaining snapshot on
// the token is informational; the file's real counter is untouched so an
// expired unredeemed token never consumes quota.
func (s *DownloadService) Issue(shareID string, creds *Credentials) (*IssueResult, error) {
	share, file, err := s.access.Authorize(shareID, creds)
	if err != nil {
		return nil, err
	}

	value, err := s.tokens.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate download token: %w", err)
	}

	token := &model.DownloadToken{
		Token:       value,
		ShareID:     share.ID,
		FileID:      file.ID,
		StoragePath: file.StoragePath,
		ExpiresAt:   time.Now().Add(model.DownloadTokenTTL),
	}
	if file.DownloadLimited() {
		token.MaxDownloads = file.MaxDownloads
		remaining := file.RemainingDownloads
		token.RemainingDownloads = &remaining
	}

	err = s.tokenRepo.Create(token)
	if err != nil {
		return nil, fmt.Errorf("failed to persist download token: %w", err)
	}

	uid := ""
	if creds != nil && creds.Identity != nil {
		uid = creds.Identity.UID
	}
	s.audit.Record(share.ID, file.ID, model.AccessEventIssued, string(file.ShareMode), uid)

	return &IssueResult{
		DownloadURL:        "/api/download?token=" + value,
		ExpiresIn:          int(model.DownloadTokenTTL.Seconds()),
		RemainingDownloads: token.RemainingDownloads,
	}, nil
}

// Redeem consumes the token. The token is marked used at the moment access
// is granted, before any byte of content moves: a client that disconnects
// mid-stream cannot retry the token, and a request rejected as stale never
// burns one. The remaining-downloads decrement happens only here and is
// clamped at zero by the store.
func (s *DownloadService) Redeem(tokenValue string) (*Redemption, error) {
	token, err := s.tokenRepo.Consume(tokenValue)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound):
			return nil, fmt.Errorf("download token: %w", apperr.ErrNotFound)
		case errors.Is(err, repository.ErrTokenUsed):
			return nil, fmt.Errorf("download token: %w", apperr.ErrTokenUsed)
		case errors.Is(err, repository.ErrTokenExpired):
			return nil, fmt.Errorf("download token: %w", apperr.ErrExpired)
		}
		return nil, fmt.Errorf("failed to consume download token: %w", err)
	}

	if token.MaxDownloads != nil && *token.MaxDownloads > 0 {
		_, err = s.fileRepo.DecrementRemaining(token.FileID)
		if err != nil {
			// The token is already consumed; the download proceeds.
			slog.Warn("failed to decrement remaining downloads", "error", err, "file_id", token.FileID)
		}
	}

	file, err := s.fileRepo.ByID(token.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file for redemption: %w", err)
	}

	s.audit.Record(token.ShareID, token.FileID, model.AccessEventDownloaded, "", "")

	return &Redemption{
		FileID:      file.ID,
		ShareID:     token.ShareID,
		StoragePath: token.StoragePath,
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
	}, nil
}
