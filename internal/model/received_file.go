package model

import (
	"time"
)

// ReceivedFile gives an account-bound recipient durable visibility into a
// file. Created exactly once per (uid, share) as part of the atomic bind.
type ReceivedFile struct {
	ID        string    `db:"id"`
	UID       string    `db:"uid"`
	FileID    string    `db:"file_id"`
	ShareID   string    `db:"share_id"`
	CreatedAt time.Time `db:"created_at"`
}

// UsageCounter carries per-user monotonic counters: bytes of confirmed
// storage and the cumulative count of files received through account
// binding. Both only ever move via atomic UPDATEs.
type UsageCounter struct {
	UID           string `db:"uid"`
	UsedBytes     int64  `db:"used_bytes"`
	ReceivedFiles int64  `db:"received_files"`
}
