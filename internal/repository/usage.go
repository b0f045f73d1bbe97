package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/model"
)

type UsageRepository interface {
	Counter(uid string) (*model.UsageCounter, error)
	ReceivedFiles(uid string) ([]*model.ReceivedFile, error)
}

type usageRepository struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) Counter(uid string) (*model.UsageCounter, error) {
	var c model.UsageCounter
	err := r.db.Get(&c, `SELECT * FROM usage_counters WHERE uid = $1`, uid)
	if err == sql.ErrNoRows {
		return &model.UsageCounter{UID: uid}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *usageRepository) ReceivedFiles(uid string) ([]*model.ReceivedFile, error) {
	var files []*model.ReceivedFile
	query := `SELECT * FROM received_files WHERE uid = $1 ORDER BY created_at DESC`

	err := r.db.Select(&files, query, uid)
	if err != nil {
		return nil, err
	}

	return files, nil
}
