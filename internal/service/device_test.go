package service

import (
	"errors"
	"testing"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
	"github.com/fileward/fileward/internal/webauthn"
)

func deviceShare(t *testing.T, e *env) (*model.File, *model.Share) {
	t.Helper()
	file := e.file(t, "alice", func(f *model.File) { f.ShareMode = model.ModeDevice })
	return file, e.share(t, file)
}

func bindDevice(t *testing.T, e *env, share *model.Share, file *model.File, uid string, counter uint32) *model.DeviceBinding {
	t.Helper()
	binding := &model.DeviceBinding{
		ShareID:      share.ID,
		CredentialID: "cred-1",
		PublicKey:    []byte{0xa5},
		Counter:      counter,
		BoundByUID:   &uid,
	}
	err := e.deviceRepo.Create(binding)
	if err != nil {
		t.Fatalf("create binding: %v", err)
	}
	return binding
}

func assertion() *webauthn.AssertionResponse {
	return &webauthn.AssertionResponse{CredentialID: "cred-1"}
}

func TestFinishAssertionHappyPath(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	file, share := deviceShare(t, e)
	bindDevice(t, e, share, file, "bob", 5)
	e.verifier.result = &webauthn.Result{Verified: true, NewCounter: 6}

	_, err := e.access.StartAssertion(share.ID)
	if err != nil {
		t.Fatalf("start assertion: %v", err)
	}

	sessionToken, err := e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if err != nil {
		t.Fatalf("finish assertion: %v", err)
	}

	claims, err := e.tokens.VerifySession(sessionToken)
	if err != nil {
		t.Fatalf("verify session: %v", err)
	}
	if claims.Mode != model.ModeDevice || claims.CredentialID != "cred-1" {
		t.Errorf("claims = %+v, want device mode with cred-1", claims)
	}

	got, err := e.deviceRepo.ByCredential(share.ID, "cred-1")
	if err != nil {
		t.Fatalf("reload binding: %v", err)
	}
	if got.Counter != 6 {
		t.Errorf("stored counter = %d, want 6", got.Counter)
	}
}

func TestFinishAssertionCounterRollback(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	file, share := deviceShare(t, e)
	bindDevice(t, e, share, file, "bob", 5)
	e.verifier.result = &webauthn.Result{Verified: true, NewCounter: 5}

	_, err := e.access.StartAssertion(share.ID)
	if err != nil {
		t.Fatalf("start assertion: %v", err)
	}

	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if !errors.Is(err, apperr.ErrSecurityFault) {
		t.Errorf("equal counter: got %v, want ErrSecurityFault", err)
	}

	// A nonzero counter dropping to zero is rollback, not counter-less
	// hardware.
	e.verifier.result = &webauthn.Result{Verified: true, NewCounter: 0}
	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if !errors.Is(err, apperr.ErrSecurityFault) {
		t.Errorf("rollback to zero: got %v, want ErrSecurityFault", err)
	}
}

func TestFinishAssertionCounterlessAuthenticator(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	file, share := deviceShare(t, e)
	bindDevice(t, e, share, file, "bob", 0)
	e.verifier.result = &webauthn.Result{Verified: true, NewCounter: 0}

	_, err := e.access.StartAssertion(share.ID)
	if err != nil {
		t.Fatalf("start assertion: %v", err)
	}

	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if err != nil {
		t.Errorf("both counters zero should pass, got %v", err)
	}
}

func TestFinishAssertionForeignDevice(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	e.user(t, "mallory")
	file, share := deviceShare(t, e)
	bindDevice(t, e, share, file, "bob", 0)

	_, err := e.access.StartAssertion(share.ID)
	if err != nil {
		t.Fatalf("start assertion: %v", err)
	}

	_, err = e.access.FinishAssertion(share.ID, identity("mallory"), assertion())
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("foreign identity: got %v, want ErrForbidden", err)
	}
}

func TestFinishAssertionUnknownCredential(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	_, share := deviceShare(t, e)

	_, err := e.access.StartAssertion(share.ID)
	if err != nil {
		t.Fatalf("start assertion: %v", err)
	}

	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("unknown credential: got %v, want ErrForbidden", err)
	}
}

func TestFinishAssertionChallengeSingleUse(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	file, share := deviceShare(t, e)
	bindDevice(t, e, share, file, "bob", 5)
	e.verifier.result = &webauthn.Result{Verified: true, NewCounter: 6}

	_, err := e.access.StartAssertion(share.ID)
	if err != nil {
		t.Fatalf("start assertion: %v", err)
	}

	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if err != nil {
		t.Fatalf("first finish: %v", err)
	}

	// Same challenge replayed with a fresh-looking counter.
	e.verifier.result = &webauthn.Result{Verified: true, NewCounter: 7}
	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("replayed challenge: got %v, want ErrUnauthorized", err)
	}
}

func TestFinishAssertionExpiredChallengeKeptFresh(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	file, share := deviceShare(t, e)
	bindDevice(t, e, share, file, "bob", 5)

	challenge := &model.Challenge{
		Challenge: "stale",
		ShareID:   share.ID,
		FileID:    file.ID,
		Type:      model.ChallengeTypeAssertion,
		ExpiresAt: time.Now().Add(-time.Second),
	}
	err := e.challengeRepo.Create(challenge)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}

	_, err = e.access.FinishAssertion(share.ID, identity("bob"), assertion())
	if !errors.Is(err, apperr.ErrExpired) {
		t.Errorf("expired challenge: got %v, want ErrExpired", err)
	}

	// Rejection must not consume the challenge record.
	got, err := e.challengeRepo.Latest(share.ID, model.ChallengeTypeAssertion)
	if err != nil {
		t.Fatalf("reload challenge: %v", err)
	}
	if got.IsUsed() {
		t.Error("expired challenge must not be marked used by a rejected finish")
	}
}

func TestFinishRegistrationPersistsClaimedBinding(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	_, share := deviceShare(t, e)
	e.verifier.credential = &webauthn.Credential{ID: "cred-9", PublicKey: []byte{0xa5, 0x01}, Counter: 3}

	_, err := e.access.StartRegistration(share.ID)
	if err != nil {
		t.Fatalf("start registration: %v", err)
	}

	sessionToken, err := e.access.FinishRegistration(share.ID, identity("bob"), &webauthn.RegistrationResponse{CredentialID: "cred-9"})
	if err != nil {
		t.Fatalf("finish registration: %v", err)
	}
	if sessionToken == "" {
		t.Error("expected a session token after registration")
	}

	binding, err := e.deviceRepo.ByCredential(share.ID, "cred-9")
	if err != nil {
		t.Fatalf("load binding: %v", err)
	}
	if !binding.Claimed() || *binding.BoundByUID != "bob" {
		t.Errorf("binding claimed by %v, want bob", binding.BoundByUID)
	}
	if binding.Counter != 3 {
		t.Errorf("binding counter = %d, want 3", binding.Counter)
	}
}

func TestStartChallengeWrongMode(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	file := e.file(t, "alice")
	share := e.share(t, file)

	_, err := e.access.StartAssertion(share.ID)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("got %v, want ErrInvalid", err)
	}
}
