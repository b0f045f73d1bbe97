package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/model"
)

var (
	ErrTokenNotFound = errors.New("download token not found")
	ErrTokenExpired  = errors.New("download token has expired")
	ErrTokenUsed     = errors.New("download token has already been used")
)

type DownloadTokenRepository interface {
	Create(token *model.DownloadToken) error
	// Consume atomically marks the token used and returns it. Exactly one
	// caller can ever succeed per token; later or concurrent callers get
	// ErrTokenUsed, ErrTokenExpired or ErrTokenNotFound.
	Consume(token string) (*model.DownloadToken, error)
}

type downloadTokenRepository struct {
	db *sqlx.DB
}

func NewDownloadTokenRepository(db *sqlx.DB) DownloadTokenRepository {
	return &downloadTokenRepository{db: db}
}

func (r *downloadTokenRepository) Create(token *model.DownloadToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO download_tokens (token, share_id, file_id, storage_path, expires_at, used_at, max_downloads, remaining_downloads, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, $7, $8)
	`
	_, err := r.db.Exec(query,
		token.Token,
		token.ShareID,
		token.FileID,
		token.StoragePath,
		token.ExpiresAt,
		token.MaxDownloads,
		token.RemainingDownloads,
		token.CreatedAt,
	)
	return err
}

// Consume is a single UPDATE with RETURNING, so the mark-used write and the
// read are one database operation. When the guarded update matches nothing,
// a follow-up read classifies the failure; by then the row state is settled.
func (r *downloadTokenRepository) Consume(token string) (*model.DownloadToken, error) {
	var t model.DownloadToken
	now := time.Now()

	query := `
		UPDATE download_tokens
		SET used_at = $1
		WHERE token = $2
		AND used_at IS NULL
		AND expires_at > $3
		RETURNING *
	`

	err := r.db.Get(&t, query, now, token, now)
	if err == nil {
		return &t, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// Classify: absent, already used, or expired.
	err = r.db.Get(&t, `SELECT * FROM download_tokens WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.IsUsed() {
		return nil, ErrTokenUsed
	}
	return nil, ErrTokenExpired
}
