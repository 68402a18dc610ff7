package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

type PubSubConfig struct {
	ProjectID string
	// Client is used as is when set; otherwise one is created from ClientOptions.
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
}

// PubSub publishes to Google Pub/Sub topics, keeping one batching
// publisher per topic. Headers become message attributes.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	client := cfg.Client
	if client == nil {
		if cfg.ProjectID == "" {
			return nil, ErrPubSubProjectIDRequired
		}

		c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
		if err != nil {
			return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
		}
		client = c
	}

	return &PubSub{client: client, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Close flushes every publisher before closing the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	pubs := p.publishers
	p.publishers = nil
	p.mu.Unlock()

	if pubs == nil {
		return nil
	}
	for _, pub := range pubs {
		pub.Stop()
	}
	return p.client.Close()
}

// Publish waits for the server-assigned message id.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	msg, err := prepare(ctx, destination, msg)
	if err != nil {
		return PublishResult{}, err
	}

	pub, err := p.publisher(destination)
	if err != nil {
		return PublishResult{}, err
	}

	id, err := pub.Publish(ctx, &pubsub.Message{Data: msg.Body, Attributes: msg.Headers}).Get(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish: %w", err)
	}

	return PublishResult{MessageID: id, Topic: destination, Timestamp: time.Now()}, nil
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.publishers == nil {
		return nil, ErrClosed
	}
	pub, ok := p.publishers[topic]
	if !ok {
		pub = p.client.Publisher(topic)
		p.publishers[topic] = pub
	}
	return pub, nil
}
