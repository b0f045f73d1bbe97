package model

import (
	"time"
)

const (
	ChallengeTypeRegistration = "registration"
	ChallengeTypeAssertion    = "assertion"

	// ChallengeTTL bounds how long a challenge may wait for its response.
	ChallengeTTL = 5 * time.Minute
)

// Challenge is a one-shot random value bridging the two phases of a
// device registration or assertion. Consumed by setting used_at after a
// successful verification; never reused even when verification is retried.
type Challenge struct {
	ID        string     `db:"id"`
	Challenge string     `db:"challenge"` // base64url random value
	ShareID   string     `db:"share_id"`
	FileID    string     `db:"file_id"`
	Type      string     `db:"type"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (c *Challenge) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

func (c *Challenge) IsUsed() bool {
	return c.UsedAt != nil
}
