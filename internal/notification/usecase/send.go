package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/stepup/internal/notification/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/mail"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Send delivers the code in n over n.Channel. The code itself is never logged.
func (s *Usecase) Send(ctx context.Context, n delivery.Notice) (err error) {
	ctx, span := s.startSpan(ctx, "Send")
	span.SetAttributes(attribute.String("channel", n.Channel.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !s.enabled(n.Channel) {
		slog.WarnContext(ctx, "notification channel disabled", "channel", n.Channel)
		return entity.ErrChannelDisabled
	}

	data := map[string]any{
		"username":  n.Recipient.Username,
		"code":      n.Code,
		"operation": n.OperationNumber,
		"time":      s.clock.Now().Format("2006-01-02 15:04:05"),
	}

	switch n.Channel {
	case delivery.ChannelEmail:
		err = s.sendEmail(ctx, n, data)
	case delivery.ChannelSMS:
		err = s.sendSMS(ctx, n, data)
	case delivery.ChannelTelegram:
		err = s.sendTelegram(ctx, n, data)
	case delivery.ChannelFile:
		err = s.sendFile(ctx, n, data)
	default:
		err = entity.ErrChannelNotConfigured
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to deliver code", "channel", n.Channel, "user_id", n.Recipient.UserID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "code delivered", "channel", n.Channel, "user_id", n.Recipient.UserID, "operation", n.OperationNumber)
	return nil
}

func (s *Usecase) sendEmail(ctx context.Context, n delivery.Notice, data map[string]any) error {
	if s.repoMail == nil {
		return entity.ErrChannelNotConfigured
	}
	if strings.TrimSpace(n.Recipient.Email) == "" {
		return entity.ErrRecipientMissing
	}

	body, err := s.renderTemplate("email", emailTemplate, data)
	if err != nil {
		return err
	}

	return s.repoMail.Send(ctx, mail.Message{
		To:      []string{n.Recipient.Email},
		Subject: emailSubject,
		Body:    body,
	})
}

func (s *Usecase) sendSMS(ctx context.Context, n delivery.Notice, data map[string]any) error {
	if s.repoSMS == nil {
		return entity.ErrChannelNotConfigured
	}
	if strings.TrimSpace(n.Recipient.Phone) == "" {
		return entity.ErrRecipientMissing
	}

	text, err := s.renderTemplate("sms", shortTemplate, data)
	if err != nil {
		return err
	}

	return s.repoSMS.Publish(ctx, entity.SMS{
		To:              n.Recipient.Phone,
		Text:            text,
		OperationNumber: n.OperationNumber,
	})
}

// sendTelegram falls back to notification.telegram.default_chat_id for users
// that never linked a chat.
func (s *Usecase) sendTelegram(ctx context.Context, n delivery.Notice, data map[string]any) error {
	if s.repoTelegram == nil {
		return entity.ErrChannelNotConfigured
	}

	chatID := strings.TrimSpace(n.Recipient.TelegramChatID)
	if chatID == "" {
		chatID = strings.TrimSpace(s.cfg.GetString("notification.telegram.default_chat_id"))
	}
	if chatID == "" {
		return entity.ErrRecipientMissing
	}

	text, err := s.renderTemplate("telegram", shortTemplate, data)
	if err != nil {
		return err
	}

	return s.repoTelegram.SendMessage(ctx, chatID, text)
}

func (s *Usecase) sendFile(ctx context.Context, n delivery.Notice, data map[string]any) error {
	if s.repoFile == nil {
		return entity.ErrChannelNotConfigured
	}

	line, err := s.renderTemplate("file", fileTemplate, data)
	if err != nil {
		return err
	}

	key, err := s.repoFile.Append(ctx, n.Recipient.Username, s.clock.Now(), line+"\n")
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "code written to file sink", "key", key)
	return nil
}
