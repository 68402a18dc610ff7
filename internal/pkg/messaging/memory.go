package messaging

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory records published messages in process memory.
type Memory struct {
	mu     sync.Mutex
	msgs   map[string][]OutgoingMessage
	seq    int
	closed bool
}

func NewMemory() *Memory {
	return &Memory{msgs: make(map[string][]OutgoingMessage)}
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	msg, err := prepare(ctx, destination, msg)
	if err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return PublishResult{}, ErrClosed
	}

	m.seq++
	m.msgs[destination] = append(m.msgs[destination], msg)

	return PublishResult{MessageID: strconv.Itoa(m.seq), Topic: destination, Timestamp: time.Now()}, nil
}

// Messages returns a copy of what was published to destination.
func (m *Memory) Messages(destination string) []OutgoingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutgoingMessage(nil), m.msgs[destination]...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
