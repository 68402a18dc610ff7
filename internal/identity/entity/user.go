package entity

import "time"

// User is an account. Role is one of the authz roles.
type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	Email          string
	Role           string
	Phone          string
	TelegramChatID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Unique constraints reported by the store on register.
const (
	ConstraintUsername    = "users_username_key"
	ConstraintSingleAdmin = "users_single_admin_idx"
)

// DuplicateError reports which unique constraint a write violated.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return "duplicate value violates " + e.Constraint
}
