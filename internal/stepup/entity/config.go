package entity

import "time"

const (
	MinCodeLength = 4
	MaxCodeLength = 10
	MinTTLSeconds = 10
	MaxTTLSeconds = 86400
)

// OtpConfig controls code generation and validity. It is read on every call
// since an administrator may change it at runtime.
type OtpConfig struct {
	CodeLength int
	TTLSeconds int
	UpdatedAt  time.Time
}

func (c OtpConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
