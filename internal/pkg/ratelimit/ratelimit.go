// Package ratelimit provides fixed-window counters keyed by caller.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrLimitExceeded is returned when the key has used up its window.
var ErrLimitExceeded = errors.New("ratelimit: limit exceeded")

// Limiter admits at most limit hits per key within window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) error
}
