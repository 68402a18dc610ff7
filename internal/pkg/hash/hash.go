package hash

import "strings"

// Hash produces and verifies one-way digests of secrets.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}

// Algorithm names accepted by SelectPassword.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// SelectPassword returns the password hasher for algorithm, falling back to bcrypt.
func SelectPassword(algorithm string, bcrypt, argon2id Hash) Hash {
	if strings.EqualFold(strings.TrimSpace(algorithm), AlgorithmArgon2id) {
		return argon2id
	}
	return bcrypt
}

// Any verifies hashed against every hasher in hs. Stored passwords keep working
// after the configured algorithm changes.
func Any(hashed, str string, hs ...Hash) bool {
	for _, h := range hs {
		if h != nil && h.Verify(hashed, str) {
			return true
		}
	}
	return false
}
