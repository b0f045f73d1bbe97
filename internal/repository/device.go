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
	ErrDeviceNotFound = errors.New("device binding not found")
	// ErrCounterConflict means the stored counter changed between read and
	// update. The caller re-reads and re-evaluates monotonicity.
	ErrCounterConflict = errors.New("device counter conflict")
)

type DeviceRepository interface {
	Create(binding *model.DeviceBinding) error
	ByCredential(shareID, credentialID string) (*model.DeviceBinding, error)
	AllByShare(shareID string) ([]*model.DeviceBinding, error)
	// UpdateCounter persists a successful assertion's counter and
	// last-used timestamp. The compare-and-set on the old counter keeps
	// two racing assertions from both passing the monotonicity check.
	UpdateCounter(id string, oldCounter, newCounter uint32) error
}

type deviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Create(binding *model.DeviceBinding) error {
	if binding.ID == "" {
		binding.ID = uuid.New().String()
	}
	if binding.CreatedAt.IsZero() {
		binding.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO device_bindings (id, share_id, credential_id, public_key, counter, bound_by_uid, transports, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(query,
		binding.ID,
		binding.ShareID,
		binding.CredentialID,
		binding.PublicKey,
		binding.Counter,
		binding.BoundByUID,
		binding.Transports,
		binding.LastUsedAt,
		binding.CreatedAt,
	)
	return err
}

func (r *deviceRepository) ByCredential(shareID, credentialID string) (*model.DeviceBinding, error) {
	var b model.DeviceBinding
	query := `SELECT * FROM device_bindings WHERE share_id = $1 AND credential_id = $2`

	err := r.db.Get(&b, query, shareID, credentialID)
	if err == sql.ErrNoRows {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *deviceRepository) AllByShare(shareID string) ([]*model.DeviceBinding, error) {
	var bindings []*model.DeviceBinding
	query := `SELECT * FROM device_bindings WHERE share_id = $1 ORDER BY created_at`

	err := r.db.Select(&bindings, query, shareID)
	if err != nil {
		return nil, err
	}

	return bindings, nil
}

func (r *deviceRepository) UpdateCounter(id string, oldCounter, newCounter uint32) error {
	query := `
		UPDATE device_bindings
		SET counter = $1, last_used_at = $2
		WHERE id = $3 AND counter = $4
	`
	res, err := r.db.Exec(query, newCounter, time.Now(), id, oldCounter)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCounterConflict
	}
	return nil
}
