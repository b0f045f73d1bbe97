package service

import (
	"errors"
	"fmt"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
)

// BindAccount attaches the caller as the permanent recipient of an
// account-mode share. First binder wins; re-binding the same identity is an
// idempotent success; anyone else is Forbidden.
func (s *AccessService) BindAccount(shareID string, identity *model.Identity) error {
	if identity == nil {
		return fmt.Errorf("sign-in required to bind a share: %w", apperr.ErrUnauthorized)
	}

	share, file, err := s.shares.resolve(shareID)
	if err != nil {
		return err
	}
	if file.ShareMode != model.ModeAccount {
		return fmt.Errorf("share is not account bound: %w", apperr.ErrInvalid)
	}

	return s.bind(share, file, identity.UID)
}

// bind runs the atomic single-writer bind. The repository applies the
// share update, the visibility record and the received counter as one
// transaction; partial application is impossible.
func (s *AccessService) bind(share *model.Share, file *model.File, uid string) error {
	didBind, err := s.shareRepo.Bind(share.ID, file.ID, uid)
	if err != nil {
		if errors.Is(err, repository.ErrBoundElsewhere) {
			return fmt.Errorf("share belongs to another account: %w", apperr.ErrForbidden)
		}
		if errors.Is(err, repository.ErrShareNotFound) {
			return fmt.Errorf("share %s: %w", share.ID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to bind share: %w", err)
	}

	if didBind {
		s.audit.Record(share.ID, file.ID, model.AccessEventBound, "", uid)
	}

	return nil
}
