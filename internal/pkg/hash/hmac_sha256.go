package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 is a keyed digest for values that are looked up by their
// digest: one-time codes and session tokens.
type HMACSHA256 struct {
	key []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{key: []byte(secret)}
}

// Hash returns the hex encoded digest of s.
func (h *HMACSHA256) Hash(s string) ([]byte, error) {
	return h.digest(s), nil
}

// Verify compares in constant time.
func (h *HMACSHA256) Verify(hashed, s string) bool {
	return hmac.Equal([]byte(hashed), h.digest(s))
}

func (h *HMACSHA256) digest(s string) []byte {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(s))
	return hex.AppendEncode(nil, mac.Sum(nil))
}
