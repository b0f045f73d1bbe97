package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/model"
)

var (
	ErrValidationNotFound = errors.New("upload validation not found")
	ErrValidationExpired  = errors.New("upload validation has expired")
	ErrValidationUsed     = errors.New("upload validation has already been used")
	// ErrValidationMismatch means the token exists but was minted for a
	// different identity.
	ErrValidationMismatch = errors.New("upload validation belongs to another account")
)

type UploadValidationRepository interface {
	Create(validation *model.UploadValidation) error
	// ByToken loads a validation for the given uid. Ownership is checked
	// before state so a caller holding someone else's token learns nothing
	// about its lifecycle.
	ByToken(token, uid string) (*model.UploadValidation, error)
	// ConsumeAndCommit atomically marks the validation used, records the
	// measured size and increments the owner's durable used-bytes counter.
	// One transaction: exactly one confirm per token can ever commit, and
	// the counter can never be bumped without the token being consumed.
	ConsumeAndCommit(token, uid string, actualSize int64) error
}

type uploadValidationRepository struct {
	db *sqlx.DB
}

func NewUploadValidationRepository(db *sqlx.DB) UploadValidationRepository {
	return &uploadValidationRepository{db: db}
}

func (r *uploadValidationRepository) Create(validation *model.UploadValidation) error {
	if validation.CreatedAt.IsZero() {
		validation.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO upload_validations (token, uid, file_size, expires_at, used_at, actual_size, created_at)
		VALUES ($1, $2, $3, $4, NULL, NULL, $5)
	`
	_, err := r.db.Exec(query,
		validation.Token,
		validation.UID,
		validation.FileSize,
		validation.ExpiresAt,
		validation.CreatedAt,
	)
	return err
}

func (r *uploadValidationRepository) ByToken(token, uid string) (*model.UploadValidation, error) {
	var v model.UploadValidation
	err := r.db.Get(&v, `SELECT * FROM upload_validations WHERE token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, ErrValidationNotFound
	}
	if err != nil {
		return nil, err
	}
	if v.UID != uid {
		return nil, ErrValidationMismatch
	}
	if v.IsUsed() {
		return nil, ErrValidationUsed
	}
	if v.IsExpired() {
		return nil, ErrValidationExpired
	}
	return &v, nil
}

func (r *uploadValidationRepository) ConsumeAndCommit(token, uid string, actualSize int64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	res, err := tx.Exec(`
		UPDATE upload_validations
		SET used_at = $1, actual_size = $2
		WHERE token = $3
		AND uid = $4
		AND used_at IS NULL
		AND expires_at > $5
	`, now, actualSize, token, uid, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost the race (or the token aged out between check and commit).
		return ErrValidationUsed
	}

	_, err = tx.Exec(`
		INSERT INTO usage_counters (uid, used_bytes, received_files)
		VALUES ($1, $2, 0)
		ON CONFLICT (uid) DO UPDATE SET used_bytes = usage_counters.used_bytes + $2
	`, uid, actualSize)
	if err != nil {
		return err
	}

	return tx.Commit()
}
