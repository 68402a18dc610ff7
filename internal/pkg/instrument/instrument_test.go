package instrument

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config is noop", func(t *testing.T) {
		ins, err := New(ctx, nil)
		require.NoError(t, err)
		_, span := ins.Tracer("t").Start(ctx, "span")
		assert.False(t, span.SpanContext().IsValid())
		span.End()
		require.NoError(t, ins.Shutdown(ctx))
	})

	t.Run("disabled still installs the logger", func(t *testing.T) {
		prev := slog.Default()
		t.Cleanup(func() { slog.SetDefault(prev) })

		ins, err := New(ctx, &Config{ServiceName: "stepup", LogLevel: "warn"})
		require.NoError(t, err)
		require.NoError(t, ins.Shutdown(ctx))

		assert.NotSame(t, prev, slog.Default())
		assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
		assert.True(t, slog.Default().Enabled(ctx, slog.LevelWarn))
	})
}

func TestProvidersShutdownOrder(t *testing.T) {
	var order []string
	stop := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return err
		}
	}

	boom := errors.New("boom")
	p := &providers{stop: []func(context.Context) error{
		stop("logs", nil),
		stop("traces", boom),
		stop("metrics", nil),
	}}

	require.ErrorIs(t, p.Shutdown(context.Background()), boom)
	assert.Equal(t, []string{"metrics", "traces", "logs"}, order)
}
