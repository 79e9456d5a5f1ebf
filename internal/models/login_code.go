package models

import "time"

// LoginCode is a stored one-time login code. Only the digest of the code is persisted.
type LoginCode struct {
	Email     string
	CodeHash  string
	Name      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt reports whether the code is no longer valid at now.
// A code is valid strictly before its expiry.
func (c *LoginCode) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
