package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/db"
	"github.com/fileward/fileward/internal/model"
)

// setupTestDB creates a migrated temporary SQLite database.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	conn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	database, err := db.Init("sqlite", conn)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	err = db.RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func seedUser(t *testing.T, database *sqlx.DB, uid string) {
	t.Helper()
	err := NewUserRepository(database).Create(&model.User{ID: uid, Email: uid + "@example.com"})
	if err != nil {
		t.Fatalf("seed user %s: %v", uid, err)
	}
}

// seedFile creates a public, unexpired file owned by ownerUID. Mutations
// adjust the record before insertion.
func seedFile(t *testing.T, database *sqlx.DB, ownerUID string, mutations ...func(*model.File)) *model.File {
	t.Helper()
	file := &model.File{
		ID:          uuid.NewString(),
		OwnerUID:    ownerUID,
		Name:        "report.pdf",
		StoragePath: "objects/" + uuid.NewString(),
		Size:        2048,
		ContentType: "application/pdf",
		ShareMode:   model.ModePublic,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		CreatedAt:   time.Now(),
	}
	for _, mutate := range mutations {
		mutate(file)
	}
	err := NewFileRepository(database).Create(file)
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return file
}

func seedShare(t *testing.T, database *sqlx.DB, file *model.File) *model.Share {
	t.Helper()
	share := &model.Share{
		FileID:   file.ID,
		OwnerUID: file.OwnerUID,
		Valid:    true,
	}
	err := NewShareRepository(database).Create(share)
	if err != nil {
		t.Fatalf("seed share: %v", err)
	}
	return share
}
