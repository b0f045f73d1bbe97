package model

import (
	"time"
)

// DownloadTokenTTL is the redemption window for a minted download token.
const DownloadTokenTTL = 2 * time.Minute

// DownloadToken is a single-use capability minted after successful access
// verification. The token value itself is the primary key and the
// unguessable secret. The max/remaining snapshot is informational only;
// issuance never touches the file's real counter.
type DownloadToken struct {
	Token              string     `db:"token"`
	ShareID            string     `db:"share_id"`
	FileID             string     `db:"file_id"`
	StoragePath        string     `db:"storage_path"`
	ExpiresAt          time.Time  `db:"expires_at"`
	UsedAt             *time.Time `db:"used_at"`
	MaxDownloads       *int64     `db:"max_downloads"`
	RemainingDownloads *int64     `db:"remaining_downloads"`
	CreatedAt          time.Time  `db:"created_at"`
}

func (t *DownloadToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *DownloadToken) IsUsed() bool {
	return t.UsedAt != nil
}
