package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS publishes to core NATS subjects. Publish flushes, so a nil error
// means the server has the message.
type NATS struct {
	conn *nats.Conn
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}
	return &NATS{conn: conn}, nil
}

// Close drains pending messages before closing the connection.
func (n *NATS) Close() error {
	if n.conn.IsClosed() {
		return nil
	}
	err := n.conn.Drain()
	n.conn.Close()
	return err
}

func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	msg, err := prepare(ctx, destination, msg)
	if err != nil {
		return PublishResult{}, err
	}
	if n.conn.IsClosed() || n.conn.IsDraining() {
		return PublishResult{}, ErrClosed
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		nmsg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}
