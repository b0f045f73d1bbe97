package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/validation"
)

// VerifyPin checks the supplied PIN against the file's stored hash and, on
// success, mints a short-lived session token for the issue path. A mismatch
// reports plain Unauthorized without revealing which side failed.
func (s *AccessService) VerifyPin(shareID, pin string) (sessionToken string, expiresIn int, err error) {
	share, file, err := s.shares.resolve(shareID)
	if err != nil {
		return "", 0, err
	}

	if file.ShareMode != model.ModePin {
		return "", 0, fmt.Errorf("share is not PIN protected: %w", apperr.ErrInvalid)
	}
	if file.PinHash == nil || *file.PinHash == "" {
		return "", 0, fmt.Errorf("share has no PIN configured: %w", apperr.ErrInvalid)
	}

	err = validation.ValidatePin(pin)
	if err != nil {
		return "", 0, fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}

	err = bcrypt.CompareHashAndPassword([]byte(*file.PinHash), []byte(pin))
	if err != nil {
		return "", 0, fmt.Errorf("PIN verification failed: %w", apperr.ErrUnauthorized)
	}

	sessionToken, err = s.tokens.MintSession(&SessionClaims{
		ShareID: share.ID,
		FileID:  file.ID,
		Mode:    model.ModePin,
	}, s.pinSessionTTL)
	if err != nil {
		return "", 0, fmt.Errorf("failed to mint session token: %w", err)
	}

	s.audit.Record(share.ID, file.ID, model.AccessEventPinOK, "", "")

	return sessionToken, int(s.pinSessionTTL.Seconds()), nil
}

// HashPin produces the stored form of a share PIN.
func HashPin(pin string) (string, error) {
	err := validation.ValidatePin(pin)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, apperr.ErrInvalid)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
