package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
)

// ShareView is the caller-facing merge of share and file state. The storage
// path and PIN hash never appear here; only the trusted issue path sees the
// full records.
type ShareView struct {
	ShareID            string          `json:"shareId"`
	FileID             string          `json:"fileId"`
	Name               string          `json:"name"`
	Size               int64           `json:"size"`
	ContentType        string          `json:"contentType"`
	Mode               model.ShareMode `json:"mode"`
	AccountBound       bool            `json:"accountBound"`
	ExpiresAt          time.Time       `json:"expiresAt"`
	MaxDownloads       *int64          `json:"maxDownloads,omitempty"`
	RemainingDownloads *int64          `json:"remainingDownloads,omitempty"`
}

// ShareService loads share+file state, evaluates the universal validity
// predicates and produces the mode-appropriate view.
type ShareService struct {
	shareRepo repository.ShareRepository
	fileRepo  repository.FileRepository
	usageRepo repository.UsageRepository
	audit     *AuditService
}

func NewShareService(
	shareRepo repository.ShareRepository,
	fileRepo repository.FileRepository,
	usageRepo repository.UsageRepository,
	audit *AuditService,
) *ShareService {
	return &ShareService{
		shareRepo: shareRepo,
		fileRepo:  fileRepo,
		usageRepo: usageRepo,
		audit:     audit,
	}
}

// resolve loads both records and applies the universal predicates every
// access path shares: existence, link validity, expiry, revocation and the
// download ceiling. Mode-specific verification comes after.
func (s *ShareService) resolve(shareID string) (*model.Share, *model.File, error) {
	share, err := s.shareRepo.ByID(shareID)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return nil, nil, fmt.Errorf("share %s: %w", shareID, apperr.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to load share: %w", err)
	}

	file, err := s.fileRepo.ByID(share.FileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, nil, fmt.Errorf("file for share %s: %w", shareID, apperr.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to load file: %w", err)
	}

	// An account-bound share outlives its public link: once a fixed
	// recipient is attached, invalidating the link must not lock them out.
	isAccountBound := file.ShareMode == model.ModeAccount && share.IsAccountBound()
	if !share.Valid && !isAccountBound {
		return nil, nil, fmt.Errorf("share link no longer valid: %w", apperr.ErrInvalid)
	}

	if file.IsExpired() {
		return nil, nil, fmt.Errorf("share expired at %s: %w", file.ExpiresAt.Format(time.RFC3339), apperr.ErrExpired)
	}

	if share.Revoked || file.Revoked {
		return nil, nil, fmt.Errorf("share revoked: %w", apperr.ErrRevoked)
	}

	if file.DownloadLimited() && file.RemainingDownloads <= 0 {
		return nil, nil, fmt.Errorf("download limit reached: %w", apperr.ErrQuotaExceeded)
	}

	return share, file, nil
}

// Resolve returns the sanitized view for an inbound share lookup and logs
// the access as a best-effort side effect.
func (s *ShareService) Resolve(shareID string) (*ShareView, error) {
	share, file, err := s.resolve(shareID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(share.ID, file.ID, model.AccessEventResolved, string(file.ShareMode), "")

	return viewOf(share, file), nil
}

func viewOf(share *model.Share, file *model.File) *ShareView {
	view := &ShareView{
		ShareID:      share.ID,
		FileID:       file.ID,
		Name:         file.Name,
		Size:         file.Size,
		ContentType:  file.ContentType,
		Mode:         file.ShareMode,
		AccountBound: share.IsAccountBound(),
		ExpiresAt:    file.ExpiresAt,
	}
	if file.DownloadLimited() {
		view.MaxDownloads = file.MaxDownloads
		remaining := file.RemainingDownloads
		view.RemainingDownloads = &remaining
	}
	return view
}

// Create makes a new share link for a file the caller owns.
func (s *ShareService) Create(ownerUID, fileID string) (*model.Share, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	if file.OwnerUID != ownerUID {
		return nil, fmt.Errorf("not the file owner: %w", apperr.ErrForbidden)
	}
	if file.Revoked {
		return nil, fmt.Errorf("file revoked: %w", apperr.ErrRevoked)
	}

	share := &model.Share{
		FileID:   file.ID,
		OwnerUID: ownerUID,
		Valid:    true,
	}
	err = s.shareRepo.Create(share)
	if err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	return share, nil
}

// Revoke invalidates a share the caller owns.
func (s *ShareService) Revoke(ownerUID, shareID string) error {
	err := s.shareRepo.Revoke(shareID, ownerUID)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return fmt.Errorf("share %s: %w", shareID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to revoke share: %w", err)
	}
	return nil
}

// AllByOwner lists the caller's shares.
func (s *ShareService) AllByOwner(ownerUID string) ([]*model.Share, error) {
	return s.shareRepo.AllByOwner(ownerUID)
}

// Received lists the files durably visible to an account through binding.
func (s *ShareService) Received(uid string) ([]*model.ReceivedFile, error) {
	return s.usageRepo.ReceivedFiles(uid)
}
