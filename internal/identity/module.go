package identity

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/stepup/internal/identity/inbound"
	"github.com/shandysiswandi/stepup/internal/identity/outbound/db"
	"github.com/shandysiswandi/stepup/internal/identity/usecase"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Sessions   session.Store              `validate:"required"`
	Gate       *authz.Gate                `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Argon2ID   hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`

	// Storage holds FILE channel deliveries; nil skips their cleanup on delete.
	Storage storage.Storage
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:     db.NewDB(dep.DBConn, dep.Instrument),
		Sessions:   dep.Sessions,
		Storage:    dep.Storage,
		Gate:       dep.Gate,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Bcrypt:     dep.Bcrypt,
		Argon2ID:   dep.Argon2ID,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
