package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

type NSQConfig struct {
	// ProducerAddr is the nsqd TCP address.
	ProducerAddr string
	// ProducerConfig defaults to nsq.NewConfig().
	ProducerConfig *nsq.Config
}

// NSQ publishes to NSQ topics. NSQ messages are bodies only.
type NSQ struct {
	producer *nsq.Producer
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p}, nil
}

func (n *NSQ) Close() error {
	n.producer.Stop()
	return nil
}

// Publish waits for nsqd to acknowledge the message or for ctx to end.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	msg, err := prepare(ctx, destination, msg)
	if err != nil {
		return PublishResult{}, err
	}

	done := make(chan *nsq.ProducerTransaction, 1)
	if err := n.producer.PublishAsync(destination, msg.Body, done); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	select {
	case tx := <-done:
		if tx.Error != nil {
			return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", tx.Error)
		}
		return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
	case <-ctx.Done():
		return PublishResult{}, ctx.Err()
	}
}
