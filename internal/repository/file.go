package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/model"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

type FileRepository interface {
	Create(file *model.File) error
	ByID(id string) (*model.File, error)
	AllByOwner(ownerUID string) ([]*model.File, error)
	// UsedBytes sums the sizes of the owner's non-revoked files. Read fresh
	// on every quota decision; never cached across requests.
	UsedBytes(ownerUID string) (int64, error)
	Revoke(id, ownerUID string) error
	// DecrementRemaining atomically decrements remaining_downloads for a
	// download-limited file, clamped at zero. Returns the number of rows
	// changed (0 when the counter was already at zero or no limit applies).
	DecrementRemaining(id string) (int64, error)
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	query := `INSERT INTO files (id, owner_uid, name, storage_path, size, content_type, share_mode, pin_hash, max_downloads, remaining_downloads, expires_at, revoked, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(query,
		file.ID,
		file.OwnerUID,
		file.Name,
		file.StoragePath,
		file.Size,
		file.ContentType,
		file.ShareMode,
		file.PinHash,
		file.MaxDownloads,
		file.RemainingDownloads,
		file.ExpiresAt,
		file.Revoked,
		file.CreatedAt,
	)

	return err
}

func (r *fileRepository) ByID(id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.Get(file, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}

	return file, err
}

func (r *fileRepository) AllByOwner(ownerUID string) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE owner_uid = $1 ORDER BY created_at DESC`

	err := r.db.Select(&files, query, ownerUID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) UsedBytes(ownerUID string) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(size), 0) FROM files WHERE owner_uid = $1 AND revoked = FALSE`

	err := r.db.Get(&total, query, ownerUID)
	return total, err
}

func (r *fileRepository) Revoke(id, ownerUID string) error {
	query := `UPDATE files SET revoked = TRUE WHERE id = $1 AND owner_uid = $2`
	res, err := r.db.Exec(query, id, ownerUID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

// DecrementRemaining guards the decrement inside the UPDATE predicate so two
// concurrent redemptions can never drive the counter negative.
func (r *fileRepository) DecrementRemaining(id string) (int64, error) {
	query := `
		UPDATE files
		SET remaining_downloads = remaining_downloads - 1
		WHERE id = $1
		AND max_downloads IS NOT NULL
		AND max_downloads > 0
		AND remaining_downloads > 0
	`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
