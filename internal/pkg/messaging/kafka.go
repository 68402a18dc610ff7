package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

type KafkaConfig struct {
	Brokers []string
	// Transport overrides the default transport (TLS, SASL, timeouts).
	Transport kafka.RoundTripper
}

// Kafka publishes to Kafka topics through one shared writer. The topic is
// set per message, so new destinations need no new connections.
type Kafka struct {
	writer *kafka.Writer

	once     sync.Once
	closeErr error
	mu       sync.RWMutex
	closed   bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              cfg.Transport,
	}}, nil
}

func (k *Kafka) Close() error {
	k.once.Do(func() {
		k.mu.Lock()
		k.closed = true
		k.mu.Unlock()
		k.closeErr = k.writer.Close()
	})
	return k.closeErr
}

// Publish writes synchronously; messages with the same Key land on the same
// partition and keep their order.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	msg, err := prepare(ctx, destination, msg)
	if err != nil {
		return PublishResult{}, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return PublishResult{}, ErrClosed
	}

	kmsg := kafka.Message{Topic: destination, Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for key, v := range msg.Headers {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: kmsg.Time}, nil
}
