package model

import (
	"time"
)

// Share is a capability record pointing at exactly one file, gated by the
// file's share mode.
type Share struct {
	ID        string    `db:"id"`
	FileID    string    `db:"file_id"`
	OwnerUID  string    `db:"owner_uid"`
	Valid     bool      `db:"valid"` // flips to false when the link is invalidated
	Revoked   bool      `db:"revoked"`
	BoundUID  *string   `db:"bound_uid"` // set exactly once by account binding
	CreatedAt time.Time `db:"created_at"`
}

// IsAccountBound reports whether a fixed recipient is attached. An
// account-bound share stays usable even after its public link is
// invalidated.
func (s *Share) IsAccountBound() bool {
	return s.BoundUID != nil && *s.BoundUID != ""
}

// BoundTo reports whether the share is bound to the given uid.
func (s *Share) BoundTo(uid string) bool {
	return s.BoundUID != nil && *s.BoundUID == uid
}
