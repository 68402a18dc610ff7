package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// maxArgon2Memory bounds the memory cost read back from a stored hash (KiB).
const maxArgon2Memory = 1024 * 1024

// Argon2idConfig holds the cost parameters. Zero values take the defaults.
type Argon2idConfig struct {
	// MemoryKiB is the memory cost per hash.
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	// MaxConcurrent caps simultaneous hash computations; peak memory is
	// MaxConcurrent * MemoryKiB.
	MaxConcurrent int
	Pepper        string
}

// Argon2id implements Hash with the PHC string format.
type Argon2id struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
	pepper      string
	sema        chan struct{}
}

// NewArgon2id returns an Argon2id hasher.
func NewArgon2id(cfg Argon2idConfig) *Argon2id {
	a := &Argon2id{
		memory:      cfg.MemoryKiB,
		iterations:  cfg.Iterations,
		parallelism: cfg.Parallelism,
		saltLength:  16,
		keyLength:   32,
		pepper:      cfg.Pepper,
	}
	if a.memory == 0 {
		a.memory = 32 * 1024
	}
	if a.iterations == 0 {
		a.iterations = 3
	}
	if a.parallelism == 0 {
		a.parallelism = 2
	}
	if a.memory > maxArgon2Memory {
		a.memory = maxArgon2Memory
	}
	if cfg.MaxConcurrent > 0 {
		a.sema = make(chan struct{}, cfg.MaxConcurrent)
	}
	return a
}

func (a *Argon2id) key(str string, salt []byte, t, m uint32, p uint8, n uint32) []byte {
	if a.sema != nil {
		a.sema <- struct{}{}
		defer func() { <-a.sema }()
	}
	return argon2.IDKey([]byte(str+a.pepper), salt, t, m, p, n)
}

// Hash returns $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (a *Argon2id) Hash(str string) ([]byte, error) {
	salt := make([]byte, a.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	sum := a.key(str, salt, a.iterations, a.memory, a.parallelism, a.keyLength)

	return fmt.Appendf(nil, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.memory, a.iterations, a.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify recomputes with the parameters stored in hashed, so hashes made
// with older costs keep verifying after the configuration changes.
func (a *Argon2id) Verify(hashed, str string) bool {
	if hashed == "" || str == "" {
		return false
	}

	parts := strings.Split(hashed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}
	if memory == 0 || memory > maxArgon2Memory || iterations == 0 || parallelism == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := a.key(str, salt, iterations, memory, parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(expected, computed) == 1
}
