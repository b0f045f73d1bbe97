package model

import (
	"time"
)

// ShareMode is the closed set of trust models gating a share. Verifier
// dispatch switches exhaustively over these values so a new mode cannot be
// added without a compile-time complaint.
type ShareMode string

const (
	ModePublic  ShareMode = "public"
	ModePin     ShareMode = "pin"
	ModeDevice  ShareMode = "device"
	ModeAccount ShareMode = "account"
)

// Valid reports whether m is one of the known modes.
func (m ShareMode) Valid() bool {
	switch m {
	case ModePublic, ModePin, ModeDevice, ModeAccount:
		return true
	}
	return false
}

// File is a stored object plus its sharing policy. RemainingDownloads is
// only ever decremented by the download-token redeemer, never at issuance.
type File struct {
	ID                 string    `db:"id"`
	OwnerUID           string    `db:"owner_uid"`
	Name               string    `db:"name"`
	StoragePath        string    `db:"storage_path"`
	Size               int64     `db:"size"`
	ContentType        string    `db:"content_type"`
	ShareMode          ShareMode `db:"share_mode"`
	PinHash            *string   `db:"pin_hash"`
	MaxDownloads       *int64    `db:"max_downloads"`
	RemainingDownloads int64     `db:"remaining_downloads"`
	ExpiresAt          time.Time `db:"expires_at"`
	Revoked            bool      `db:"revoked"`
	CreatedAt          time.Time `db:"created_at"`
}

// IsExpired reports whether the file's share window has passed.
func (f *File) IsExpired() bool {
	return time.Now().After(f.ExpiresAt)
}

// DownloadLimited reports whether a download ceiling applies.
func (f *File) DownloadLimited() bool {
	return f.MaxDownloads != nil && *f.MaxDownloads > 0
}
