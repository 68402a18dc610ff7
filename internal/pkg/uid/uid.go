// Package uid generates identifiers: numeric snowflake ids for rows, UUIDs for
// correlation and object ids for opaque tokens.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates positive, roughly time-ordered int64 identifiers.
type NumberID interface {
	Generate() int64
}
