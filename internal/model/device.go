package model

import (
	"time"
)

// DeviceBinding is a registered public-key credential authorized to assert
// access to a device-mode share. Counter must be strictly increasing across
// successful assertions; authenticators that never report a counter keep
// both old and new values at zero and are exempt.
type DeviceBinding struct {
	ID           string     `db:"id"`
	ShareID      string     `db:"share_id"`
	CredentialID string     `db:"credential_id"` // base64url credential id
	PublicKey    []byte     `db:"public_key"`    // COSE-encoded key
	Counter      uint32     `db:"counter"`
	BoundByUID   *string    `db:"bound_by_uid"`
	Transports   string     `db:"transports"` // comma-separated hints
	LastUsedAt   *time.Time `db:"last_used_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Claimed reports whether exactly one account owns this credential. An
// unclaimed device must not authenticate.
func (d *DeviceBinding) Claimed() bool {
	return d.BoundByUID != nil && *d.BoundByUID != ""
}
