package entity

import "time"

type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "ACTIVE"
	CodeStatusUsed    CodeStatus = "USED"
	CodeStatusExpired CodeStatus = "EXPIRED"
)

func (s CodeStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is allowed.
func (s CodeStatus) Terminal() bool {
	return s == CodeStatusUsed || s == CodeStatusExpired
}

// Code is a persisted one-time code. The plaintext value is never stored,
// only its digest.
type Code struct {
	ID              int64
	UserID          int64
	OperationNumber int
	CodeHash        string
	Status          CodeStatus
	Channel         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExpiresAt is the end of the validity window.
func (c Code) ExpiresAt(ttl time.Duration) time.Time {
	return c.CreatedAt.Add(ttl)
}

// PastTTL reports whether now is after the validity window.
func (c Code) PastTTL(now time.Time, ttl time.Duration) bool {
	return now.After(c.ExpiresAt(ttl))
}
