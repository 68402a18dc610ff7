package uid

import (
	"crypto/rand"
	"encoding/base64"
)

// MinTokenBytes is the smallest token entropy NewToken accepts.
const MinTokenBytes = 16

// Token generates opaque bearer credentials: size bytes from crypto/rand,
// base64url encoded without padding. Nothing about the issuer or the issue
// time can be read back from a token.
type Token struct {
	size int
}

// NewToken returns a Token generator. Sizes below MinTokenBytes use 32.
func NewToken(size int) *Token {
	if size < MinTokenBytes {
		size = 32
	}
	return &Token{size: size}
}

// Generate returns a fresh token.
func (t *Token) Generate() string {
	b := make([]byte, t.size)
	// crypto/rand.Read never returns an error; it crashes the process instead.
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
