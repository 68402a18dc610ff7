package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/clock"
)

// Memory is a process-local Limiter.
type Memory struct {
	clock clock.Clocker

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count int
	end   time.Time
}

// NewMemory returns a Memory limiter. A nil clk uses the system clock.
func NewMemory(clk clock.Clocker) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{clock: clk, windows: make(map[string]*window)}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, win time.Duration) error {
	if limit <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.end) {
		m.windows[key] = &window{count: 1, end: now.Add(win)}
		return nil
	}

	if w.count >= limit {
		return ErrLimitExceeded
	}

	w.count++
	return nil
}
