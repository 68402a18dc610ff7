package config

import (
	"io"
	"time"
)

// Config is the read-only view of the service configuration.
// Missing keys yield the zero value of the requested type.
type Config interface {
	io.Closer

	// GetSecond and GetMinute read an integer key scaled to the unit in the name.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	GetInt(key string) int
	GetInt32(key string) int32
	GetUint64(key string) uint64
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value; invalid input yields nil.
	GetBinary(key string) []byte

	// GetArray splits a comma separated value, dropping blank elements.
	GetArray(key string) []string
}
