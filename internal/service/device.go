package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/repository"
	"github.com/fileward/fileward/internal/webauthn"
)

// ChallengeOptions is what a client needs to drive its authenticator for
// the second half of a registration or assertion ceremony.
type ChallengeOptions struct {
	Challenge string    `json:"challenge"`
	ShareID   string    `json:"shareId"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newChallengeValue() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// startChallenge persists a one-shot challenge for a device-mode share.
func (s *AccessService) startChallenge(shareID, challengeType string) (*ChallengeOptions, error) {
	share, file, err := s.shares.resolve(shareID)
	if err != nil {
		return nil, err
	}
	if file.ShareMode != model.ModeDevice {
		return nil, fmt.Errorf("share is not device protected: %w", apperr.ErrInvalid)
	}

	value, err := newChallengeValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	challenge := &model.Challenge{
		Challenge: value,
		ShareID:   share.ID,
		FileID:    file.ID,
		Type:      challengeType,
		ExpiresAt: time.Now().Add(model.ChallengeTTL),
	}
	err = s.challengeRepo.Create(challenge)
	if err != nil {
		return nil, fmt.Errorf("failed to persist challenge: %w", err)
	}

	return &ChallengeOptions{
		Challenge: challenge.Challenge,
		ShareID:   share.ID,
		Type:      challengeType,
		ExpiresAt: challenge.ExpiresAt,
	}, nil
}

// StartRegistration begins the device-binding ceremony. Device-capacity
// limits are enforced outside the core protocol.
func (s *AccessService) StartRegistration(shareID string) (*ChallengeOptions, error) {
	return s.startChallenge(shareID, model.ChallengeTypeRegistration)
}

// StartAssertion begins the access ceremony for an already-bound device.
func (s *AccessService) StartAssertion(shareID string) (*ChallengeOptions, error) {
	return s.startChallenge(shareID, model.ChallengeTypeAssertion)
}

// FinishRegistration verifies the attestation response against the newest
// registration challenge and persists the credential, claimed by the
// registering identity.
func (s *AccessService) FinishRegistration(shareID string, identity *model.Identity, response *webauthn.RegistrationResponse) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("sign-in required to register a device: %w", apperr.ErrUnauthorized)
	}

	share, file, err := s.shares.resolve(shareID)
	if err != nil {
		return "", err
	}
	if file.ShareMode != model.ModeDevice {
		return "", fmt.Errorf("share is not device protected: %w", apperr.ErrInvalid)
	}

	challenge, err := s.latestChallenge(share.ID, model.ChallengeTypeRegistration)
	if err != nil {
		return "", err
	}

	credential, err := s.webauthn.VerifyRegistration(challenge.Challenge, s.origin, response)
	if err != nil {
		return "", fmt.Errorf("registration rejected: %w", apperr.ErrUnauthorized)
	}

	binding := &model.DeviceBinding{
		ShareID:      share.ID,
		CredentialID: credential.ID,
		PublicKey:    credential.PublicKey,
		Counter:      credential.Counter,
		BoundByUID:   &identity.UID,
		Transports:   response.Transports,
	}
	err = s.deviceRepo.Create(binding)
	if err != nil {
		return "", fmt.Errorf("failed to persist device binding: %w", err)
	}

	err = s.challengeRepo.Consume(challenge.ID)
	if err != nil {
		return "", fmt.Errorf("challenge already consumed: %w", apperr.ErrUnauthorized)
	}

	s.audit.Record(share.ID, file.ID, model.AccessEventRegistered, credential.ID, identity.UID)

	return s.mintDeviceSession(share.ID, file.ID, credential.ID)
}

// FinishAssertion verifies a device assertion: newest unexpired challenge,
// credential ownership, delegated signature verification, then the counter
// monotonicity invariant. Only after all of that does the challenge get
// consumed and a session minted.
func (s *AccessService) FinishAssertion(shareID string, identity *model.Identity, response *webauthn.AssertionResponse) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("sign-in required to assert a device: %w", apperr.ErrUnauthorized)
	}

	share, file, err := s.shares.resolve(shareID)
	if err != nil {
		return "", err
	}
	if file.ShareMode != model.ModeDevice {
		return "", fmt.Errorf("share is not device protected: %w", apperr.ErrInvalid)
	}

	challenge, err := s.latestChallenge(share.ID, model.ChallengeTypeAssertion)
	if err != nil {
		return "", err
	}

	binding, err := s.deviceRepo.ByCredential(share.ID, response.CredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return "", fmt.Errorf("credential not bound to this share: %w", apperr.ErrForbidden)
		}
		return "", fmt.Errorf("failed to load device binding: %w", err)
	}

	// A device must be claimed by exactly one account before it can
	// authenticate, and only that account may use it.
	if !binding.Claimed() {
		return "", fmt.Errorf("device is not claimed by any account: %w", apperr.ErrForbidden)
	}
	if *binding.BoundByUID != identity.UID {
		return "", fmt.Errorf("device is claimed by another account: %w", apperr.ErrForbidden)
	}

	result, err := s.webauthn.VerifyAssertion(challenge.Challenge, s.origin, binding.PublicKey, response)
	if err != nil || !result.Verified {
		return "", fmt.Errorf("assertion rejected: %w", apperr.ErrUnauthorized)
	}

	err = s.checkCounter(binding, result.NewCounter)
	if err != nil {
		s.audit.Record(share.ID, file.ID, model.AccessEventAsserted,
			fmt.Sprintf("counter rollback: stored=%d reported=%d credential=%s", binding.Counter, result.NewCounter, binding.CredentialID),
			identity.UID)
		return "", err
	}

	if result.NewCounter != 0 || binding.Counter != 0 {
		err = s.deviceRepo.UpdateCounter(binding.ID, binding.Counter, result.NewCounter)
		if err != nil {
			// A racing assertion advanced the counter first; this
			// response's counter is no longer fresh.
			return "", fmt.Errorf("authenticator counter conflict: %w", apperr.ErrSecurityFault)
		}
	}

	err = s.challengeRepo.Consume(challenge.ID)
	if err != nil {
		return "", fmt.Errorf("challenge already consumed: %w", apperr.ErrUnauthorized)
	}

	s.audit.Record(share.ID, file.ID, model.AccessEventAsserted, binding.CredentialID, identity.UID)

	return s.mintDeviceSession(share.ID, file.ID, binding.CredentialID)
}

// latestChallenge returns the newest challenge of the given type, rejecting
// absent or expired ones without touching their used flag.
func (s *AccessService) latestChallenge(shareID, challengeType string) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.Latest(shareID, challengeType)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			return nil, fmt.Errorf("no pending %s challenge: %w", challengeType, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if challenge.IsExpired() {
		return nil, fmt.Errorf("%s challenge expired: %w", challengeType, apperr.ErrExpired)
	}
	if challenge.IsUsed() {
		return nil, fmt.Errorf("%s challenge already used: %w", challengeType, apperr.ErrUnauthorized)
	}
	return challenge, nil
}

// checkCounter enforces strict counter increase whenever either value is
// nonzero. Both-zero means the authenticator does not support counters. A
// nonzero counter dropping back to zero is treated as rollback.
func (s *AccessService) checkCounter(binding *model.DeviceBinding, newCounter uint32) error {
	if newCounter == 0 && binding.Counter == 0 {
		return nil
	}
	if newCounter <= binding.Counter {
		return fmt.Errorf("authenticator counter did not advance (stored=%d reported=%d): %w",
			binding.Counter, newCounter, apperr.ErrSecurityFault)
	}
	return nil
}

func (s *AccessService) mintDeviceSession(shareID, fileID, credentialID string) (string, error) {
	sessionToken, err := s.tokens.MintSession(&SessionClaims{
		ShareID:      shareID,
		FileID:       fileID,
		Mode:         model.ModeDevice,
		CredentialID: credentialID,
	}, s.deviceSessionTTL)
	if err != nil {
		return "", fmt.Errorf("failed to mint session token: %w", err)
	}
	return sessionToken, nil
}
