package model

import (
	"time"
)

// UploadValidationTTL bounds the gap between quota validation and upload
// confirmation.
const UploadValidationTTL = 10 * time.Minute

// UploadValidation bridges a pre-upload quota check to the post-upload
// integrity confirmation of the same object.
type UploadValidation struct {
	Token      string     `db:"token"`
	UID        string     `db:"uid"`
	FileSize   int64      `db:"file_size"`
	ExpiresAt  time.Time  `db:"expires_at"`
	UsedAt     *time.Time `db:"used_at"`
	ActualSize *int64     `db:"actual_size"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (v *UploadValidation) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

func (v *UploadValidation) IsUsed() bool {
	return v.UsedAt != nil
}
