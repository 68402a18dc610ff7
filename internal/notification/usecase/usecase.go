package usecase

import (
	"bytes"
	"context"
	"slices"
	"text/template"
	"time"

	"github.com/shandysiswandi/stepup/internal/notification/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/mail"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"go.opentelemetry.io/otel/trace"
)

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type repoSMS interface {
	Publish(ctx context.Context, sms entity.SMS) error
}

type repoTelegram interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

type repoFile interface {
	Append(ctx context.Context, username string, at time.Time, line string) (string, error)
}

type Usecase struct {
	cfg          config.Config
	clock        clock.Clocker
	repoMail     repoMail
	repoSMS      repoSMS
	repoTelegram repoTelegram
	repoFile     repoFile
	ins          instrument.Instrumentation
}

type Dependency struct {
	Config       config.Config
	Clock        clock.Clocker
	RepoMail     repoMail
	RepoSMS      repoSMS
	RepoTelegram repoTelegram
	RepoFile     repoFile
	Instrument   instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		cfg:          dep.Config,
		clock:        dep.Clock,
		repoMail:     dep.RepoMail,
		repoSMS:      dep.RepoSMS,
		repoTelegram: dep.RepoTelegram,
		repoFile:     dep.RepoFile,
		ins:          dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

// enabled reports whether ch is listed in notification.channels. An empty
// list enables every channel.
func (s *Usecase) enabled(ch delivery.Channel) bool {
	list := s.cfg.GetArray("notification.channels")
	if len(list) == 0 {
		return true
	}
	return slices.ContainsFunc(list, func(v string) bool {
		c, ok := delivery.ParseChannel(v)
		return ok && c == ch
	})
}

const (
	emailSubject  = "Your OTP Code"
	emailTemplate = `Hello {{.username}},

Your one-time confirmation code is: {{.code}}

It confirms operation {{.operation}} and expires shortly. If you did not request it, ignore this message.`
	shortTemplate = `Your one-time confirmation code is: {{.code}}`
	fileTemplate  = `{{.time}} - OTP: {{.code}}`
)

func (s *Usecase) renderTemplate(name, tpl string, data map[string]any) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
