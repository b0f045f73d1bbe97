package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
	"github.com/fileward/fileward/internal/storage"
)

// sizeToleranceFloor is the absolute slack allowed between validated and
// actual size; the relative slack is 1% of the validated size.
const sizeToleranceFloor = 1024

// ValidationResult is the phase-1 response.
type ValidationResult struct {
	Allowed         bool   `json:"allowed"`
	ValidationToken string `json:"validationToken"`
	ExpiresIn       int    `json:"expiresIn"`
}

// ConfirmResult is the phase-2 response.
type ConfirmResult struct {
	ConfirmedSize int64 `json:"confirmedSize"`
	NewUsedBytes  int64 `json:"newUsedBytes"`
}

// QuotaService is the two-phase storage admission protocol: validate free
// space before an upload, then reconcile the real stored size before any
// quota is charged.
type QuotaService struct {
	fileRepo       repository.FileRepository
	validationRepo repository.UploadValidationRepository
	usageRepo      repository.UsageRepository
	storage        storage.Storage
	tokens         *TokenService
	quotaBytes     int64
}

func NewQuotaService(
	fileRepo repository.FileRepository,
	validationRepo repository.UploadValidationRepository,
	usageRepo repository.UsageRepository,
	store storage.Storage,
	tokens *TokenService,
	quotaBytes int64,
) *QuotaService {
	return &QuotaService{
		fileRepo:       fileRepo,
		validationRepo: validationRepo,
		usageRepo:      usageRepo,
		storage:        store,
		tokens:         tokens,
		quotaBytes:     quotaBytes,
	}
}

// Validate is phase 1: admit or reject a prospective upload against the
// caller's live usage, and mint a validation token when admitted. Nothing
// is reserved; the counter is only touched at confirm time.
func (s *QuotaService) Validate(uid string, fileSize int64) (*ValidationResult, error) {
	if fileSize <= 0 {
		return nil, fmt.Errorf("file size must be positive: %w", apperr.ErrInvalid)
	}

	used, err := s.fileRepo.UsedBytes(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to sum storage usage: %w", err)
	}
	if used+fileSize > s.quotaBytes {
		return nil, fmt.Errorf("upload of %d bytes would exceed quota (%d of %d used): %w",
			fileSize, used, s.quotaBytes, apperr.ErrQuotaExceeded)
	}

	value, err := s.tokens.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate validation token: %w", err)
	}

	validation := &model.UploadValidation{
		Token:     value,
		UID:       uid,
		FileSize:  fileSize,
		ExpiresAt: time.Now().Add(model.UploadValidationTTL),
	}
	err = s.validationRepo.Create(validation)
	if err != nil {
		return nil, fmt.Errorf("failed to persist upload validation: %w", err)
	}

	return &ValidationResult{
		Allowed:         true,
		ValidationToken: value,
		ExpiresIn:       int(model.UploadValidationTTL.Seconds()),
	}, nil
}

// sizeTolerance is max(1024 bytes, 1% of the validated size).
func sizeTolerance(validated int64) int64 {
	tolerance := validated / 100
	if tolerance < sizeToleranceFloor {
		tolerance = sizeToleranceFloor
	}
	return tolerance
}

// Confirm is phase 2: verify the token, re-measure the stored object, and
// commit quota usage. The usage re-sum is a fresh read, not the phase-1
// snapshot, closing the check-to-use gap across concurrent uploads. An
// object that fails admission is deleted before the error returns.
func (s *QuotaService) Confirm(uid, tokenValue, storagePath string) (*ConfirmResult, error) {
	validation, err := s.validationRepo.ByToken(tokenValue, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrValidationNotFound):
			return nil, fmt.Errorf("validation token: %w", apperr.ErrNotFound)
		case errors.Is(err, repository.ErrValidationMismatch):
			return nil, fmt.Errorf("validation token: %w", apperr.ErrTokenMismatch)
		case errors.Is(err, repository.ErrValidationUsed):
			return nil, fmt.Errorf("validation token: %w", apperr.ErrTokenUsed)
		case errors.Is(err, repository.ErrValidationExpired):
			return nil, fmt.Errorf("validation token: %w", apperr.ErrExpired)
		}
		return nil, fmt.Errorf("failed to load upload validation: %w", err)
	}

	actual, err := s.storage.Size(storagePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("uploaded object %s: %w", storagePath, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to measure uploaded object: %w", err)
	}

	deviation := actual - validation.FileSize
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > sizeTolerance(validation.FileSize) {
		s.removeObject(storagePath)
		return nil, fmt.Errorf("stored size %d deviates from validated size %d: %w",
			actual, validation.FileSize, apperr.ErrSizeMismatch)
	}

	used, err := s.fileRepo.UsedBytes(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to re-sum storage usage: %w", err)
	}
	if used+actual > s.quotaBytes {
		s.removeObject(storagePath)
		return nil, fmt.Errorf("confirmed upload would exceed quota (%d of %d used): %w",
			used, s.quotaBytes, apperr.ErrQuotaExceeded)
	}

	err = s.validationRepo.ConsumeAndCommit(tokenValue, uid, actual)
	if err != nil {
		if errors.Is(err, repository.ErrValidationUsed) {
			// A concurrent confirm won the token.
			return nil, fmt.Errorf("validation token: %w", apperr.ErrTokenUsed)
		}
		return nil, fmt.Errorf("failed to commit upload validation: %w", err)
	}

	counter, err := s.usageRepo.Counter(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage counter: %w", err)
	}

	return &ConfirmResult{
		ConfirmedSize: actual,
		NewUsedBytes:  counter.UsedBytes,
	}, nil
}

// Usage reports the caller's live usage and quota ceiling.
func (s *QuotaService) Usage(uid string) (usedBytes, quotaBytes int64, err error) {
	used, err := s.fileRepo.UsedBytes(uid)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum storage usage: %w", err)
	}
	return used, s.quotaBytes, nil
}

func (s *QuotaService) removeObject(path string) {
	err := s.storage.Delete(path)
	if err != nil {
		slog.Warn("failed to delete rejected upload", "error", err, "path", path)
	}
}
