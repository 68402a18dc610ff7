package messaging

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var (
	ErrDestinationRequired = errors.New("messaging: destination is required")
	ErrClosed              = errors.New("messaging: publisher closed")
)

// Publisher publishes messages to a destination (topic/subject).
type Publisher interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

type OutgoingMessage struct {
	Body []byte
	// Key partitions on Kafka; other brokers ignore it.
	Key []byte
	// Headers travel as Kafka/NATS headers and Pub/Sub attributes. NSQ has
	// no headers and drops them.
	Headers map[string]string
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is set by brokers that assign one.
	MessageID string
	Topic     string
	Timestamp time.Time
}

// prepare validates a publish call and returns msg with its own header map
// carrying the trace context of ctx.
func prepare(ctx context.Context, destination string, msg OutgoingMessage) (OutgoingMessage, error) {
	if err := ctx.Err(); err != nil {
		return OutgoingMessage{}, err
	}
	if destination == "" {
		return OutgoingMessage{}, ErrDestinationRequired
	}

	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		if k != "" {
			headers[k] = v
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	msg.Headers = headers
	return msg, nil
}
