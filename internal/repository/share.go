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
	ErrShareNotFound = errors.New("share not found")
	// ErrBoundElsewhere means the share already has a different permanent
	// owner. First binder wins; everyone else gets this.
	ErrBoundElsewhere = errors.New("share bound to another account")
)

type ShareRepository interface {
	Create(share *model.Share) error
	ByID(id string) (*model.Share, error)
	AllByOwner(ownerUID string) ([]*model.Share, error)
	Revoke(id, ownerUID string) error
	// Bind attaches uid as the share's permanent owner, creates the
	// recipient's received-file record and bumps their received counter as
	// one atomic unit. Returns didBind=false on an idempotent re-bind to
	// the same uid, ErrBoundElsewhere when another uid got there first.
	Bind(shareID, fileID, uid string) (didBind bool, err error)
}

type shareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(share *model.Share) error {
	if share.ID == "" {
		share.ID = uuid.New().String()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now()
	}

	query := `INSERT INTO shares (id, file_id, owner_uid, valid, revoked, bound_uid, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		share.ID,
		share.FileID,
		share.OwnerUID,
		share.Valid,
		share.Revoked,
		share.BoundUID,
		share.CreatedAt,
	)

	return err
}

func (r *shareRepository) ByID(id string) (*model.Share, error) {
	share := &model.Share{}
	query := `SELECT * FROM shares WHERE id = $1`

	err := r.db.Get(share, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrShareNotFound
	}

	return share, err
}

func (r *shareRepository) AllByOwner(ownerUID string) ([]*model.Share, error) {
	var shares []*model.Share
	query := `SELECT * FROM shares WHERE owner_uid = $1 ORDER BY created_at DESC`

	err := r.db.Select(&shares, query, ownerUID)
	if err != nil {
		return nil, err
	}

	return shares, nil
}

func (r *shareRepository) Revoke(id, ownerUID string) error {
	query := `UPDATE shares SET revoked = TRUE, valid = FALSE WHERE id = $1 AND owner_uid = $2`
	res, err := r.db.Exec(query, id, ownerUID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShareNotFound
	}
	return nil
}

// Bind runs the single-writer-wins bind as one transaction: the guarded
// UPDATE decides the winner, and only the winner inserts the visibility
// record and bumps the received counter. Partial application is impossible;
// either all three writes commit or none do.
func (r *shareRepository) Bind(shareID, fileID, uid string) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE shares SET bound_uid = $1 WHERE id = $2 AND bound_uid IS NULL`, uid, shareID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if n == 0 {
		// Lost the race or already bound: find out to whom.
		var boundUID sql.NullString
		err = tx.Get(&boundUID, `SELECT bound_uid FROM shares WHERE id = $1`, shareID)
		if err == sql.ErrNoRows {
			return false, ErrShareNotFound
		}
		if err != nil {
			return false, err
		}
		if boundUID.Valid && boundUID.String == uid {
			return false, nil // idempotent re-bind
		}
		return false, ErrBoundElsewhere
	}

	now := time.Now()
	_, err = tx.Exec(`INSERT INTO received_files (id, uid, file_id, share_id, created_at)
	                  VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), uid, fileID, shareID, now)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(`INSERT INTO usage_counters (uid, used_bytes, received_files)
	                  VALUES ($1, 0, 1)
	                  ON CONFLICT (uid) DO UPDATE SET received_files = usage_counters.received_files + 1`,
		uid)
	if err != nil {
		return false, err
	}

	err = tx.Commit()
	if err != nil {
		return false, err
	}

	return true, nil
}
