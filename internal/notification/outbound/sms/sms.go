package sms

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/stepup/internal/notification/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/messaging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SMS hands messages to the SMS gateway through the broker. The gateway
// subscribes to notification.sms.destination.
type SMS struct {
	publisher messaging.Publisher
	cfg       config.Config
	ins       instrument.Instrumentation
}

func New(publisher messaging.Publisher, cfg config.Config, ins instrument.Instrumentation) *SMS {
	return &SMS{publisher: publisher, cfg: cfg, ins: ins}
}

func (s *SMS) Publish(ctx context.Context, msg entity.SMS) (err error) {
	ctx, span := s.ins.Tracer("notification.outbound.sms").Start(ctx, "Publish")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	destination := s.cfg.GetString("notification.sms.destination")
	span.SetAttributes(attribute.String("messaging.destination", destination))

	_, err = s.publisher.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.To),
		Headers: map[string]string{"content-type": "application/json"},
	})
	return err
}
