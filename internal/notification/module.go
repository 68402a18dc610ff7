package notification

import (
	"net/http"

	"github.com/shandysiswandi/stepup/internal/notification/outbound/email"
	"github.com/shandysiswandi/stepup/internal/notification/outbound/file"
	"github.com/shandysiswandi/stepup/internal/notification/outbound/sms"
	"github.com/shandysiswandi/stepup/internal/notification/outbound/telegram"
	"github.com/shandysiswandi/stepup/internal/notification/usecase"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/mail"
	"github.com/shandysiswandi/stepup/internal/pkg/messaging"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
)

// Dependency wires the channel clients. A nil client leaves its channel
// unconfigured; sends over it fail.
type Dependency struct {
	Config     config.Config              `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Mail       mail.Mail
	Publisher  messaging.Publisher
	Storage    storage.Storage
	HTTPClient *http.Client
}

func New(dep Dependency) (delivery.Dispatcher, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	ucDep := usecase.Dependency{
		Config:       dep.Config,
		Clock:        dep.Clock,
		Instrument:   dep.Instrument,
		RepoTelegram: telegram.New(dep.HTTPClient, dep.Config, dep.Instrument),
	}
	if dep.Mail != nil {
		ucDep.RepoMail = email.New(dep.Mail, dep.Instrument)
	}
	if dep.Publisher != nil {
		ucDep.RepoSMS = sms.New(dep.Publisher, dep.Config, dep.Instrument)
	}
	if dep.Storage != nil {
		ucDep.RepoFile = file.New(dep.Storage, dep.Config, dep.Instrument)
	}

	return usecase.New(ucDep), nil
}
