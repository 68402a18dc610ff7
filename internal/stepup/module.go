package stepup

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goroutine"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/idempotency"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/ratelimit"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/shandysiswandi/stepup/internal/stepup/inbound"
	"github.com/shandysiswandi/stepup/internal/stepup/outbound/db"
	"github.com/shandysiswandi/stepup/internal/stepup/usecase"
)

type Dependency struct {
	Ctx         context.Context            `validate:"required"`
	DBConn      *pgxpool.Pool              `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Pool        *goroutine.Pool            `validate:"required"`
	Dispatcher  delivery.Dispatcher        `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Limiter     ratelimit.Limiter          `validate:"required"`
	Gate        *authz.Gate                `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	HMAC        hash.Hash                  `validate:"required"`
	Bcrypt      hash.Hash                  `validate:"required"`
	Argon2ID    hash.Hash                  `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:      db.NewDB(dep.DBConn, dep.Instrument),
		Dispatcher:  dep.Dispatcher,
		Idempotency: dep.Idempotency,
		Limiter:     dep.Limiter,
		Validator:   dep.Validator,
		Config:      dep.Config,
		Gate:        dep.Gate,
		HMAC:        dep.HMAC,
		Bcrypt:      dep.Bcrypt,
		Argon2ID:    dep.Argon2ID,
		UID:         dep.UID,
		Clock:       dep.Clock,
		Pool:        dep.Pool,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	inbound.RegisterSweeper(dep.Ctx, dep.Config, dep.Goroutine, uc)

	return nil
}
