// Package idempotency guards client supplied request keys so that a retried
// request runs its side effect at most once within the state TTL.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrAlreadyFailed     = errors.New("operation already failed")
	ErrInvalidState      = errors.New("invalid idempotency state")
)

type state string

const (
	stateInProgress state = "in_progress"
	stateCompleted  state = "completed"
	stateFailed     state = "failed"
)

// seen maps a stored state to what a repeated caller gets back.
var seen = map[state]error{
	stateInProgress: ErrAlreadyInProgress,
	stateCompleted:  ErrAlreadyCompleted,
	stateFailed:     ErrAlreadyFailed,
}

type Idempotency interface {
	// Exec runs fn unless key was already seen. A repeated key returns
	// one of the ErrAlready* errors without calling fn.
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// StateTracker keeps one redis string per key holding its state.
type StateTracker struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *StateTracker {
	if prefix == "" {
		prefix = "idempotency:"
	}
	return &StateTracker{client: client, prefix: prefix}
}

type Option func(*execOptions)

type execOptions struct {
	lock time.Duration
	ttl  time.Duration
}

// WithLockDuration bounds how long an in-flight key blocks retries if the
// process dies before recording an outcome.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) {
		if d > 0 {
			o.lock = d
		}
	}
}

// WithStateTTL sets how long a finished outcome is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// claim marks key in progress and returns "" unless the key already holds
// a state, which is returned instead. SET NX GET makes this one round trip.
func (s *StateTracker) claim(ctx context.Context, key string, lock time.Duration) (state, error) {
	prev, err := s.client.SetArgs(ctx, key, string(stateInProgress), redis.SetArgs{
		Mode: "NX",
		TTL:  lock,
		Get:  true,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state(prev), nil
}

func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lock: time.Minute, ttl: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	k := s.prefix + key
	prev, err := s.claim(ctx, k, o.lock)
	if err != nil {
		return err
	}
	if prev != "" {
		if repeat, ok := seen[prev]; ok {
			return repeat
		}
		return ErrInvalidState
	}

	outcome := stateCompleted
	runErr := fn(ctx)
	if runErr != nil {
		outcome = stateFailed
	}

	// The outcome is recorded even when the caller has gone away.
	if err := s.client.Set(context.WithoutCancel(ctx), k, string(outcome), o.ttl).Err(); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}
