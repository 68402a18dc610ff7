// Package session maps opaque bearer tokens to the identity that logged in.
//
// Tokens are random strings handed to the client once. Stores key entries by
// an HMAC digest of the token, so a dump of the backing store cannot be
// replayed as bearer credentials.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
)

// ErrInvalidToken is returned when a token is unknown, revoked or expired.
var ErrInvalidToken = errors.New("session: invalid or expired token")

// Driver names accepted by the application config.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Identity is the acting principal resolved from a token.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is a stored token binding.
type Session struct {
	Identity
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store issues, resolves and revokes bearer tokens.
type Store interface {
	Issue(ctx context.Context, id Identity) (string, error)
	Resolve(ctx context.Context, token string) (Identity, error)
	Revoke(ctx context.Context, token string) error
	RevokeUser(ctx context.Context, userID int64) error
}

// Options are shared by every Store implementation.
type Options struct {
	// TTL bounds a token's lifetime. Zero disables expiry.
	TTL time.Duration
	// Tokens generates the opaque token value.
	Tokens uid.StringID
	// Digest derives the storage key from a token.
	Digest hash.Hash
	// Clock is the time source; defaults to the system clock.
	Clock clock.Clocker
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}

func (o Options) newSession(id Identity) Session {
	now := o.Clock.Now()
	s := Session{Identity: id, IssuedAt: now}
	if o.TTL > 0 {
		s.ExpiresAt = now.Add(o.TTL)
	}
	return s
}

func (o Options) key(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	digest, err := o.Digest.Hash(token)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (s Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type identityKey struct{}

// SetIdentity stores the resolved identity in ctx.
func SetIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// GetIdentity returns the identity stored in ctx, if any.
func GetIdentity(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
