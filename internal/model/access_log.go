package model

import (
	"time"
)

const (
	AccessEventResolved   = "resolved"
	AccessEventPinOK      = "pin_verified"
	AccessEventAsserted   = "device_asserted"
	AccessEventRegistered = "device_registered"
	AccessEventBound      = "account_bound"
	AccessEventIssued     = "token_issued"
	AccessEventDownloaded = "downloaded"
)

// AccessLog is an append-only audit row. Writes are best-effort; a failed
// audit write never fails the operation it describes.
type AccessLog struct {
	ID        string    `db:"id"`
	ShareID   string    `db:"share_id"`
	FileID    string    `db:"file_id"`
	Event     string    `db:"event"`
	Detail    string    `db:"detail"`
	UID       *string   `db:"uid"`
	CreatedAt time.Time `db:"created_at"`
}
