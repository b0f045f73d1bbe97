package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/model"
)

type AccessLogRepository interface {
	Append(entry *model.AccessLog) error
	AllByShare(shareID string) ([]*model.AccessLog, error)
}

type accessLogRepository struct {
	db *sqlx.DB
}

func NewAccessLogRepository(db *sqlx.DB) AccessLogRepository {
	return &accessLogRepository{db: db}
}

func (r *accessLogRepository) Append(entry *model.AccessLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO access_logs (id, share_id, file_id, event, detail, uid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(query,
		entry.ID,
		entry.ShareID,
		entry.FileID,
		entry.Event,
		entry.Detail,
		entry.UID,
		entry.CreatedAt,
	)
	return err
}

func (r *accessLogRepository) AllByShare(shareID string) ([]*model.AccessLog, error) {
	var entries []*model.AccessLog
	query := `SELECT * FROM access_logs WHERE share_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&entries, query, shareID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
