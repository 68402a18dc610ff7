package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	pub, err := NewFromDriver(ctx, " memory ", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, pub)

	_, err = NewFromDriver(ctx, "rabbit", FactoryOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, DriverKafka, FactoryOptions{})
	require.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(ctx, DriverNSQ, FactoryOptions{})
	require.ErrorIs(t, err, ErrNSQProducerAddrRequired)

	_, err = NewFromDriver(ctx, DriverNATS, FactoryOptions{})
	require.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(ctx, DriverGooglePubSub, FactoryOptions{})
	require.ErrorIs(t, err, ErrPubSubProjectIDRequired)
}

func TestMemoryPublish(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	res, err := m.Publish(ctx, "sms", OutgoingMessage{Body: []byte("a"), Headers: map[string]string{"": "dropped", "k": "v"}})
	require.NoError(t, err)
	assert.Equal(t, "sms", res.Topic)
	assert.Equal(t, "1", res.MessageID)

	_, err = m.Publish(ctx, "", OutgoingMessage{})
	require.ErrorIs(t, err, ErrDestinationRequired)

	got := m.Messages("sms")
	require.Len(t, got, 1)
	assert.Equal(t, map[string]string{"k": "v"}, got[0].Headers)
	assert.Empty(t, m.Messages("other"))

	require.NoError(t, m.Close())
	_, err = m.Publish(ctx, "sms", OutgoingMessage{})
	require.ErrorIs(t, err, ErrClosed)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewMemory().Publish(canceled, "sms", OutgoingMessage{})
	require.ErrorIs(t, err, context.Canceled)
}

// withTraceContext installs the W3C propagator for one test and returns a
// context carrying a sampled remote span.
func withTraceContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(context.Background(), sc), sc
}

func TestPublishCarriesTraceContext(t *testing.T) {
	ctx, sc := withTraceContext(t)

	in := map[string]string{"content-type": "application/json"}
	m := NewMemory()
	_, err := m.Publish(ctx, "sms", OutgoingMessage{Body: []byte("{}"), Headers: in})
	require.NoError(t, err)

	out := m.Messages("sms")[0].Headers
	assert.Equal(t, "application/json", out["content-type"])
	assert.Equal(t, "00-"+sc.TraceID().String()+"-"+sc.SpanID().String()+"-01", out["traceparent"])
	assert.NotContains(t, in, "traceparent")
}

func TestNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	bg := context.Background()
	container, err := testcontainers.GenericContainer(bg, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.11-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.PortEndpoint(bg, "4222/tcp", "nats")
	require.NoError(t, err)

	sub, err := nats.Connect(endpoint)
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	inbox, err := sub.SubscribeSync("sms.out")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := NewFromDriver(bg, DriverNATS, FactoryOptions{NATS: NATSConfig{URL: endpoint}})
	require.NoError(t, err)

	ctx, sc := withTraceContext(t)
	_, err = pub.Publish(ctx, "sms.out", OutgoingMessage{
		Body:    []byte(`{"to":"+62811"}`),
		Headers: map[string]string{"content-type": "application/json"},
	})
	require.NoError(t, err)

	msg, err := inbox.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"+62811"}`, string(msg.Data))
	assert.Equal(t, "application/json", msg.Header.Get("content-type"))
	assert.Contains(t, msg.Header.Get("traceparent"), sc.TraceID().String())

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())
	_, err = pub.Publish(bg, "sms.out", OutgoingMessage{})
	require.ErrorIs(t, err, ErrClosed)
}
