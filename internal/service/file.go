package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
	"github.com/fileward/fileward/internal/storage"
)

// CreateFileInput registers a confirmed upload together with its sharing
// policy. The storage path must already hold the object; its measured size
// becomes the record of truth, not whatever the client claims.
type CreateFileInput struct {
	Name         string
	StoragePath  string
	ContentType  string
	ShareMode    model.ShareMode
	Pin          string
	MaxDownloads *int64
	ExpiresAt    time.Time
}

// FileService registers, lists and revokes stored files.
type FileService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
}

func NewFileService(fileRepo repository.FileRepository, store storage.Storage) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  store,
	}
}

// Create registers a stored object as a shareable file. A PIN is required
// for pin mode and rejected for every other mode; it is only ever persisted
// as a bcrypt hash.
func (s *FileService) Create(ownerUID string, input *CreateFileInput) (*model.File, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("file name is required: %w", apperr.ErrInvalid)
	}
	if !input.ShareMode.Valid() {
		return nil, fmt.Errorf("unknown share mode %q: %w", input.ShareMode, apperr.ErrInvalid)
	}
	if input.ExpiresAt.IsZero() || input.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("expiry must be in the future: %w", apperr.ErrInvalid)
	}
	if input.MaxDownloads != nil && *input.MaxDownloads <= 0 {
		return nil, fmt.Errorf("max downloads must be positive: %w", apperr.ErrInvalid)
	}

	var pinHash *string
	switch {
	case input.ShareMode == model.ModePin:
		hashed, err := HashPin(input.Pin)
		if err != nil {
			return nil, err
		}
		pinHash = &hashed
	case input.Pin != "":
		return nil, fmt.Errorf("PIN only applies to pin-mode shares: %w", apperr.ErrInvalid)
	}

	size, err := s.storage.Size(input.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("no stored object at %s: %w", input.StoragePath, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to measure stored object: %w", err)
	}

	file := &model.File{
		ID:           uuid.NewString(),
		OwnerUID:     ownerUID,
		Name:         input.Name,
		StoragePath:  input.StoragePath,
		Size:         size,
		ContentType:  input.ContentType,
		ShareMode:    input.ShareMode,
		PinHash:      pinHash,
		MaxDownloads: input.MaxDownloads,
		ExpiresAt:    input.ExpiresAt,
		CreatedAt:    time.Now(),
	}
	if input.MaxDownloads != nil {
		file.RemainingDownloads = *input.MaxDownloads
	}

	err = s.fileRepo.Create(file)
	if err != nil {
		return nil, fmt.Errorf("failed to persist file: %w", err)
	}

	return file, nil
}

// Revoke marks the file revoked and removes the stored object. The record
// stays behind so existing shares and audit history resolve to Revoked
// rather than vanishing, and the object delete is best effort.
func (s *FileService) Revoke(ownerUID, fileID string) error {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to load file: %w", err)
	}
	if file.OwnerUID != ownerUID {
		return fmt.Errorf("not the file owner: %w", apperr.ErrForbidden)
	}

	err = s.fileRepo.Revoke(fileID, ownerUID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to revoke file: %w", err)
	}

	err = s.storage.Delete(file.StoragePath)
	if err != nil {
		slog.Warn("failed to delete revoked object", "error", err, "path", file.StoragePath)
	}

	return nil
}

// AllByOwner lists the caller's files, revoked ones included.
func (s *FileService) AllByOwner(ownerUID string) ([]*model.File, error) {
	return s.fileRepo.AllByOwner(ownerUID)
}
