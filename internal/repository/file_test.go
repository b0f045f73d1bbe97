package repository

import (
	"testing"

	"github.com/fileward/fileward/internal/model"
)

func TestDecrementRemainingClampsAtZero(t *testing.T) {
	database := setupTestDB(t)
	seedUser(t, database, "alice")
	limit := int64(1)
	file := seedFile(t, database, "alice", func(f *model.File) {
		f.MaxDownloads = &limit
		f.RemainingDownloads = 1
	})
	repo := NewFileRepository(database)

	n, err := repo.DecrementRemaining(file.ID)
	if err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if n != 1 {
		t.Errorf("first decrement changed %d rows, want 1", n)
	}

	n, err = repo.DecrementRemaining(file.ID)
	if err != nil {
		t.Fatalf("second decrement: %v", err)
	}
	if n != 0 {
		t.Errorf("second decrement changed %d rows, want 0", n)
	}

	got, err := repo.ByID(file.ID)
	if err != nil {
		t.Fatalf("reload file: %v", err)
	}
	if got.RemainingDownloads != 0 {
		t.Errorf("remaining = %d, want 0", got.RemainingDownloads)
	}
}

func TestDecrementRemainingIgnoresUnlimitedFiles(t *testing.T) {
	database := setupTestDB(t)
	seedUser(t, database, "alice")
	file := seedFile(t, database, "alice")
	repo := NewFileRepository(database)

	n, err := repo.DecrementRemaining(file.ID)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if n != 0 {
		t.Errorf("decrement on unlimited file changed %d rows, want 0", n)
	}
}

func TestUsedBytesExcludesRevoked(t *testing.T) {
	database := setupTestDB(t)
	seedUser(t, database, "alice")
	repo := NewFileRepository(database)

	kept := seedFile(t, database, "alice", func(f *model.File) { f.Size = 1000 })
	_ = kept
	revoked := seedFile(t, database, "alice", func(f *model.File) { f.Size = 500 })

	err := repo.Revoke(revoked.ID, "alice")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}

	used, err := repo.UsedBytes("alice")
	if err != nil {
		t.Fatalf("used bytes: %v", err)
	}
	if used != 1000 {
		t.Errorf("used = %d, want 1000", used)
	}
}

func TestRevokeRequiresOwner(t *testing.T) {
	database := setupTestDB(t)
	seedUser(t, database, "alice")
	file := seedFile(t, database, "alice")
	repo := NewFileRepository(database)

	err := repo.Revoke(file.ID, "mallory")
	if err != ErrFileNotFound {
		t.Errorf("revoke by non-owner: got %v, want ErrFileNotFound", err)
	}
}
