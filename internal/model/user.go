package model

import (
	"time"
)

// User is the minimal identity record kept alongside shares and files.
// Credential management lives with the external auth provider; this row
// only anchors foreign keys and the quota counters.
type User struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// Identity is what the auth provider returns for a verified bearer token.
type Identity struct {
	UID   string
	Email string
}
