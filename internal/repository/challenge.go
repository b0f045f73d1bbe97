package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/model"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeUsed     = errors.New("challenge has already been used")
)

type ChallengeRepository interface {
	Create(challenge *model.Challenge) error
	// Latest returns the most recently created challenge of the given type
	// for a share, used or not. Ties break on creation timestamp then id.
	Latest(shareID, challengeType string) (*model.Challenge, error)
	// Consume marks a challenge used. Single-winner: a second consume of
	// the same challenge returns ErrChallengeUsed.
	Consume(id string) error
}

type challengeRepository struct {
	db *sqlx.DB
}

func NewChallengeRepository(db *sqlx.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) Create(challenge *model.Challenge) error {
	if challenge.ID == "" {
		challenge.ID = uuid.New().String()
	}
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO challenges (id, challenge, share_id, file_id, type, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7)
	`
	_, err := r.db.Exec(query,
		challenge.ID,
		challenge.Challenge,
		challenge.ShareID,
		challenge.FileID,
		challenge.Type,
		challenge.ExpiresAt,
		challenge.CreatedAt,
	)
	return err
}

func (r *challengeRepository) Latest(shareID, challengeType string) (*model.Challenge, error) {
	var c model.Challenge
	query := `
		SELECT * FROM challenges
		WHERE share_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	err := r.db.Get(&c, query, shareID, challengeType)
	if err == sql.ErrNoRows {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *challengeRepository) Consume(id string) error {
	res, err := r.db.Exec(`UPDATE challenges SET used_at = $1 WHERE id = $2 AND used_at IS NULL`, time.Now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChallengeUsed
	}
	return nil
}
