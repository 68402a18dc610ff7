package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

var ErrBotTokenRequired = errors.New("telegram: bot token is required")

// Telegram calls the Bot API sendMessage method.
type Telegram struct {
	client *http.Client
	cfg    config.Config
	ins    instrument.Instrumentation
}

func New(client *http.Client, cfg config.Config, ins instrument.Instrumentation) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{client: client, cfg: cfg, ins: ins}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage retries network errors and 5xx answers with exponential
// backoff, up to notification.telegram.max_retries extra attempts.
func (t *Telegram) SendMessage(ctx context.Context, chatID, text string) (err error) {
	ctx, span := t.ins.Tracer("notification.outbound.telegram").Start(ctx, "SendMessage")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	token := strings.TrimSpace(t.cfg.GetString("notification.telegram.bot_token"))
	if token == "" {
		return ErrBotTokenRequired
	}

	url := strings.TrimRight(t.cfg.GetString("notification.telegram.base_url"), "/") + "/bot" + token + "/sendMessage"
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	b := retry.WithMaxRetries(t.cfg.GetUint64("notification.telegram.max_retries"), retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		return t.post(ctx, url, body)
	})
}

func (t *Telegram) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	var out apiResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return retry.RetryableError(fmt.Errorf("telegram: server error %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest || !out.OK:
		return fmt.Errorf("telegram: request rejected %d: %s", resp.StatusCode, out.Description)
	}

	return nil
}
