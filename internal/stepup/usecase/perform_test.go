package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerform(t *testing.T) {
	t.Run("sends one code over the requested channel", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Perform(asUser(1, "alice"), PerformInput{OperationNumber: 101, Channel: "file"})
		require.NoError(t, err)

		n := f.disp.last(t)
		assert.Equal(t, delivery.ChannelFile, n.Channel)
		assert.Equal(t, "alice", n.Recipient.Username)
		assert.Equal(t, "alice@example.com", n.Recipient.Email)
		assert.Equal(t, 101, n.OperationNumber)
		assert.Len(t, n.Code, 6)
		assert.Equal(t, 1, f.repo.statuses()[entity.CodeStatusActive])
	})

	t.Run("unknown operation persists nothing", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Perform(asUser(1, "alice"), PerformInput{OperationNumber: 999, Channel: "EMAIL"})
		assert.ErrorIs(t, err, errUnknownOperation)
		requireCode(t, err, goerror.CodeNotFound)
		assert.Empty(t, f.repo.statuses())
		assert.Zero(t, f.disp.count())
	})

	t.Run("operation without handler is unknown", func(t *testing.T) {
		f := newFixture(t)
		f.repo.ops[104] = entity.Operation{Number: 104, Name: "close-account"}

		err := f.uc.Perform(asUser(1, "alice"), PerformInput{OperationNumber: 104, Channel: "EMAIL"})
		assert.ErrorIs(t, err, errUnknownOperation)
	})

	t.Run("unsupported channel", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Perform(asUser(1, "alice"), PerformInput{OperationNumber: 101, Channel: "PIGEON"})
		requireCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Perform(asUser(1, "alice"), PerformInput{})
		requireCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Perform(context.Background(), PerformInput{OperationNumber: 101, Channel: "EMAIL"})
		requireCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("user gone", func(t *testing.T) {
		f := newFixture(t)

		err := f.uc.Perform(asUser(77, "ghost"), PerformInput{OperationNumber: 101, Channel: "EMAIL"})
		assert.ErrorIs(t, err, errUserNotFound)
		assert.Empty(t, f.repo.statuses())
	})

	t.Run("delivery failure keeps the code", func(t *testing.T) {
		f := newFixture(t)
		f.disp.err = errors.New("smtp down")

		err := f.uc.Perform(asUser(1, "alice"), PerformInput{OperationNumber: 101, Channel: "EMAIL"})
		requireCode(t, err, goerror.CodeUnavailable)
		assert.Equal(t, 1, f.repo.statuses()[entity.CodeStatusActive])
	})

	t.Run("rate limited per user", func(t *testing.T) {
		f := newFixture(t, withPerformLimit(2))
		in := PerformInput{OperationNumber: 102, Channel: "EMAIL"}

		require.NoError(t, f.uc.Perform(asUser(1, "alice"), in))
		require.NoError(t, f.uc.Perform(asUser(1, "alice"), in))
		err := f.uc.Perform(asUser(1, "alice"), in)
		requireCode(t, err, goerror.CodeTooManyRequest)

		require.NoError(t, f.uc.Perform(asUser(2, "bob"), in))
	})

	t.Run("idempotency key sends at most once", func(t *testing.T) {
		f := newFixture(t)
		in := PerformInput{OperationNumber: 102, Channel: "EMAIL", IdempotencyKey: "k-1"}

		require.NoError(t, f.uc.Perform(asUser(1, "alice"), in))
		require.NoError(t, f.uc.Perform(asUser(1, "alice"), in))
		assert.Equal(t, 1, f.disp.count())

		in.IdempotencyKey = "k-2"
		require.NoError(t, f.uc.Perform(asUser(1, "alice"), in))
		assert.Equal(t, 2, f.disp.count())
	})

	t.Run("idempotency state follows the admin code ttl", func(t *testing.T) {
		f := newFixture(t)
		ctx := asUser(1, "alice")

		ttl, err := f.uc.idempotencyTTL(ctx)
		require.NoError(t, err)
		assert.Equal(t, 300*time.Second, ttl)

		require.NoError(t, f.uc.UpdateConfig(asAdmin(), UpdateConfigInput{Length: 6, TTLSeconds: 45}))
		ttl, err = f.uc.idempotencyTTL(ctx)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, ttl)
	})

	t.Run("failed idempotent request is not replayed", func(t *testing.T) {
		f := newFixture(t)
		f.disp.err = errors.New("broker down")
		in := PerformInput{OperationNumber: 102, Channel: "SMS", IdempotencyKey: "k-1"}

		requireCode(t, f.uc.Perform(asUser(1, "alice"), in), goerror.CodeUnavailable)
		requireCode(t, f.uc.Perform(asUser(1, "alice"), in), goerror.CodeConflict)
	})
}

func TestPerform_Supersede(t *testing.T) {
	in := PerformInput{OperationNumber: 101, Channel: "FILE"}

	t.Run("new code expires the previous one", func(t *testing.T) {
		f := newFixture(t, withSupersede(true))
		ctx := asUser(1, "alice")

		require.NoError(t, f.uc.Perform(ctx, in))
		first := f.disp.last(t).Code
		require.NoError(t, f.uc.Perform(ctx, in))
		second := f.disp.last(t).Code

		ok, err := f.uc.CheckValid(ctx, first)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = f.uc.CheckValid(ctx, second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("overlapping codes when disabled", func(t *testing.T) {
		f := newFixture(t, withSupersede(false))
		ctx := asUser(1, "alice")

		require.NoError(t, f.uc.Perform(ctx, in))
		first := f.disp.last(t).Code
		require.NoError(t, f.uc.Perform(ctx, in))
		second := f.disp.last(t).Code

		for _, code := range []string{first, second} {
			ok, err := f.uc.CheckValid(ctx, code)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})

	t.Run("other operations are untouched", func(t *testing.T) {
		f := newFixture(t, withSupersede(true))
		ctx := asUser(1, "alice")

		require.NoError(t, f.uc.Perform(ctx, in))
		first := f.disp.last(t).Code
		require.NoError(t, f.uc.Perform(ctx, PerformInput{OperationNumber: 102, Channel: "FILE"}))

		ok, err := f.uc.CheckValid(ctx, first)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
