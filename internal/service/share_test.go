package service

import (
	"errors"
	"testing"
	"time"

	"github.com/fileward/fileward/internal/apperr"
	"github.com/fileward/fileward/internal/model"
)

func TestResolveUnknownShare(t *testing.T) {
	e := setup(t)

	_, err := e.shares.Resolve("no-such-share")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestResolveSanitizesView(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	pinHash := "$2a$10$fakehash"
	limit := int64(3)
	file := e.file(t, "alice", func(f *model.File) {
		f.ShareMode = model.ModePin
		f.PinHash = &pinHash
		f.MaxDownloads = &limit
		f.RemainingDownloads = 2
	})
	share := e.share(t, file)

	view, err := e.shares.Resolve(share.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Mode != model.ModePin {
		t.Errorf("mode = %s, want pin", view.Mode)
	}
	if view.MaxDownloads == nil || *view.MaxDownloads != 3 {
		t.Errorf("maxDownloads = %v, want 3", view.MaxDownloads)
	}
	if view.RemainingDownloads == nil || *view.RemainingDownloads != 2 {
		t.Errorf("remainingDownloads = %v, want 2", view.RemainingDownloads)
	}
}

func TestResolveInvalidatedLink(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	file := e.file(t, "alice")
	share := e.share(t, file)

	_, err := e.db.Exec(`UPDATE shares SET valid = FALSE WHERE id = $1`, share.ID)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	_, err = e.shares.Resolve(share.ID)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("got %v, want ErrInvalid", err)
	}
}

// An account-bound share must keep working for its recipient even after
// the public link is invalidated.
func TestResolveBoundShareSurvivesInvalidLink(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "bob")
	file := e.file(t, "alice", func(f *model.File) { f.ShareMode = model.ModeAccount })
	share := e.share(t, file)

	err := e.access.BindAccount(share.ID, identity("bob"))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	_, err = e.db.Exec(`UPDATE shares SET valid = FALSE WHERE id = $1`, share.ID)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	view, err := e.shares.Resolve(share.ID)
	if err != nil {
		t.Fatalf("resolve bound share: %v", err)
	}
	if !view.AccountBound {
		t.Error("view should report the share as account bound")
	}
}

func TestResolveExpired(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	file := e.file(t, "alice", func(f *model.File) { f.ExpiresAt = time.Now().Add(-time.Minute) })
	share := e.share(t, file)

	_, err := e.shares.Resolve(share.ID)
	if !errors.Is(err, apperr.ErrExpired) {
		t.Errorf("got %v, want ErrExpired", err)
	}
}

func TestResolveRevoked(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	file := e.file(t, "alice", func(f *model.File) { f.Revoked = true })
	share := e.share(t, file)

	_, err := e.shares.Resolve(share.ID)
	if !errors.Is(err, apperr.ErrRevoked) {
		t.Errorf("got %v, want ErrRevoked", err)
	}
}

func TestResolveExhaustedDownloads(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	limit := int64(1)
	file := e.file(t, "alice", func(f *model.File) {
		f.MaxDownloads = &limit
		f.RemainingDownloads = 0
	})
	share := e.share(t, file)

	_, err := e.shares.Resolve(share.ID)
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Errorf("got %v, want ErrQuotaExceeded", err)
	}
}

func TestCreateShareChecksOwnership(t *testing.T) {
	e := setup(t)
	e.user(t, "alice")
	e.user(t, "mallory")
	file := e.file(t, "alice")

	_, err := e.shares.Create("mallory", file.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}

	share, err := e.shares.Create("alice", file.ID)
	if err != nil {
		t.Fatalf("owner create: %v", err)
	}
	if share.FileID != file.ID || !share.Valid {
		t.Errorf("share = %+v, want valid share for %s", share, file.ID)
	}
}
