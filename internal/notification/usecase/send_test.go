package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/stepup/internal/notification/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/mail"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recorder struct {
	mu       sync.Mutex
	mails    []mail.Message
	sms      []entity.SMS
	chats    map[string]string
	files    map[string]string
	failWith error
}

func (r *recorder) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails = append(r.mails, msg)
	return r.failWith
}

func (r *recorder) Publish(_ context.Context, sms entity.SMS) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sms = append(r.sms, sms)
	return r.failWith
}

func (r *recorder) SendMessage(_ context.Context, chatID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chatID] = text
	return r.failWith
}

func (r *recorder) Append(_ context.Context, username string, _ time.Time, line string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[username] = line
	return "otp/" + username + "/1.txt", r.failWith
}

func newUsecase(t *testing.T, yaml string) (*Usecase, *recorder) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	rec := &recorder{chats: map[string]string{}, files: map[string]string{}}
	return New(Dependency{
		Config:       cfg,
		Clock:        fixedClock{now: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)},
		RepoMail:     rec,
		RepoSMS:      rec,
		RepoTelegram: rec,
		RepoFile:     rec,
		Instrument:   instrument.NewNoop(),
	}), rec
}

func notice(ch delivery.Channel) delivery.Notice {
	return delivery.Notice{
		Channel: ch,
		Recipient: delivery.Recipient{
			UserID:   1,
			Username: "alice",
			Email:    "alice@example.com",
			Phone:    "+6281234",
		},
		Code:            "482913",
		OperationNumber: 101,
	}
}

func TestSend(t *testing.T) {
	uc, rec := newUsecase(t, `notification: {telegram: {default_chat_id: "-100"}}`)
	ctx := context.Background()

	t.Run("email", func(t *testing.T) {
		require.NoError(t, uc.Send(ctx, notice(delivery.ChannelEmail)))
		require.Len(t, rec.mails, 1)
		assert.Equal(t, []string{"alice@example.com"}, rec.mails[0].To)
		assert.Equal(t, "Your OTP Code", rec.mails[0].Subject)
		assert.Contains(t, rec.mails[0].Body, "Your one-time confirmation code is: 482913")
	})

	t.Run("sms", func(t *testing.T) {
		require.NoError(t, uc.Send(ctx, notice(delivery.ChannelSMS)))
		require.Len(t, rec.sms, 1)
		assert.Equal(t, entity.SMS{To: "+6281234", Text: "Your one-time confirmation code is: 482913", OperationNumber: 101}, rec.sms[0])
	})

	t.Run("telegram falls back to the default chat", func(t *testing.T) {
		require.NoError(t, uc.Send(ctx, notice(delivery.ChannelTelegram)))
		assert.Contains(t, rec.chats["-100"], "482913")

		n := notice(delivery.ChannelTelegram)
		n.Recipient.TelegramChatID = "42"
		require.NoError(t, uc.Send(ctx, n))
		assert.Contains(t, rec.chats["42"], "482913")
	})

	t.Run("file", func(t *testing.T) {
		require.NoError(t, uc.Send(ctx, notice(delivery.ChannelFile)))
		assert.Equal(t, "2026-03-04 05:06:07 - OTP: 482913\n", rec.files["alice"])
	})

	t.Run("recipient without phone", func(t *testing.T) {
		n := notice(delivery.ChannelSMS)
		n.Recipient.Phone = ""
		assert.ErrorIs(t, uc.Send(ctx, n), entity.ErrRecipientMissing)
	})

	t.Run("channel error surfaces", func(t *testing.T) {
		rec.failWith = errors.New("boom")
		defer func() { rec.failWith = nil }()
		assert.EqualError(t, uc.Send(ctx, notice(delivery.ChannelEmail)), "boom")
	})
}

func TestSend_DisabledAndUnconfigured(t *testing.T) {
	uc, _ := newUsecase(t, `notification: {channels: "EMAIL,FILE"}`)
	ctx := context.Background()

	assert.ErrorIs(t, uc.Send(ctx, notice(delivery.ChannelSMS)), entity.ErrChannelDisabled)
	assert.NoError(t, uc.Send(ctx, notice(delivery.ChannelFile)))

	uc.repoMail = nil
	assert.ErrorIs(t, uc.Send(ctx, notice(delivery.ChannelEmail)), entity.ErrChannelNotConfigured)

	n := notice(delivery.ChannelTelegram)
	uc2, _ := newUsecase(t, `app: {}`)
	assert.ErrorIs(t, uc2.Send(ctx, n), entity.ErrRecipientMissing)
}
