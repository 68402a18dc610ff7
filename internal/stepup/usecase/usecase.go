package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/goroutine"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/idempotency"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/ratelimit"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

var (
	errInvalidOrExpired = goerror.NewBusiness("Invalid or expired code", goerror.CodeInvalidInput)
	errUnknownOperation = goerror.NewBusiness("Unknown operation number", goerror.CodeNotFound)
	errUserNotFound     = goerror.NewBusiness("user not found", goerror.CodeNotFound)
	errRateLimited      = goerror.NewBusiness("Too many code requests, try again later", goerror.CodeTooManyRequest)
)

func errMissingParameter(field string) error {
	return goerror.NewInvalidInput(nil, field, "Required parameter is missing or invalid")
}

// errInvalidParameter rejects a field that is present but unusable.
func errInvalidParameter(field, msg string) error {
	return goerror.NewInvalidInput(nil, field, msg)
}

func errDeliveryFailed(cause error) error {
	return goerror.WrapBusiness(cause, "failed to deliver code", goerror.CodeUnavailable)
}

type repoDB interface {
	GetOtpConfig(ctx context.Context) (*entity.OtpConfig, error)
	UpdateOtpConfig(ctx context.Context, cfg entity.OtpConfig) error

	GetOperation(ctx context.Context, number int) (*entity.Operation, error)
	ListOperations(ctx context.Context) ([]entity.Operation, error)

	GetUser(ctx context.Context, id int64) (*entity.User, error)
	UpdateUserPassword(ctx context.Context, id int64, hash string) error

	// CreateCode inserts code and, when supersede is set, expires the other
	// ACTIVE codes of the same user and operation in the same transaction.
	CreateCode(ctx context.Context, code entity.Code, supersede bool) (superseded int64, err error)
	GetCodeByHash(ctx context.Context, hash string) (*entity.Code, error)
	ListCodesByUser(ctx context.Context, userID int64) ([]entity.Code, error)
	// MarkCodeUsed moves the code from ACTIVE to USED only if it was created
	// at or after notBefore. It reports whether the row changed.
	MarkCodeUsed(ctx context.Context, id int64, now, notBefore time.Time) (bool, error)
	MarkCodesExpired(ctx context.Context, createdBefore, now time.Time) (int64, error)
}

type Usecase struct {
	repoDB     repoDB
	dispatcher delivery.Dispatcher
	registry   *Registry
	idemp      idempotency.Idempotency
	limiter    ratelimit.Limiter
	validator  validator.Validator
	cfg        config.Config
	gate       *authz.Gate
	hmac       hash.Hash
	bcrypt     hash.Hash
	argon2id   hash.Hash
	uid        uid.NumberID
	clock      clock.Clocker
	pool       *goroutine.Pool
	ins        instrument.Instrumentation

	sweeping *atomic.Bool
	metrics  metrics
}

type Dependency struct {
	RepoDB      repoDB
	Dispatcher  delivery.Dispatcher
	Idempotency idempotency.Idempotency
	Limiter     ratelimit.Limiter
	Validator   validator.Validator
	Config      config.Config
	Gate        *authz.Gate
	HMAC        hash.Hash
	Bcrypt      hash.Hash
	Argon2ID    hash.Hash
	UID         uid.NumberID
	Clock       clock.Clocker
	Pool        *goroutine.Pool
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoDB:     dep.RepoDB,
		dispatcher: dep.Dispatcher,
		idemp:      dep.Idempotency,
		limiter:    dep.Limiter,
		validator:  dep.Validator,
		cfg:        dep.Config,
		gate:       dep.Gate,
		hmac:       dep.HMAC,
		bcrypt:     dep.Bcrypt,
		argon2id:   dep.Argon2ID,
		uid:        dep.UID,
		clock:      dep.Clock,
		pool:       dep.Pool,
		ins:        dep.Instrument,
		sweeping:   atomic.NewBool(false),
		metrics:    newMetrics(dep.Instrument.Meter("stepup.usecase")),
	}
	s.registry = s.defaultRegistry()

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("stepup.usecase").Start(ctx, name)
}

func (s *Usecase) passwordHasher() hash.Hash {
	return hash.SelectPassword(s.cfg.GetString("hash.password.algorithm"), s.bcrypt, s.argon2id)
}

type metrics struct {
	issued        metric.Int64Counter
	rejected      metric.Int64Counter
	confirmed     metric.Int64Counter
	expired       metric.Int64Counter
	sweepDuration metric.Float64Histogram
}

func newMetrics(m metric.Meter) metrics {
	return metrics{
		issued:    counter(m, "stepup.codes.issued", "One-time codes persisted"),
		rejected:  counter(m, "stepup.codes.rejected", "Confirmations rejected as invalid or expired"),
		confirmed: counter(m, "stepup.codes.confirmed", "Codes consumed by a confirmation"),
		expired:   counter(m, "stepup.codes.expired", "Codes moved to EXPIRED"),
		sweepDuration: func() metric.Float64Histogram {
			h, err := m.Float64Histogram("stepup.sweep.duration",
				metric.WithDescription("Duration of one expiry sweep"), metric.WithUnit("s"))
			if err != nil {
				slog.Warn("failed to create metric", "name", "stepup.sweep.duration", "error", err)
				return metricnoop.Float64Histogram{}
			}
			return h
		}(),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Warn("failed to create metric", "name", name, "error", err)
		return metricnoop.Int64Counter{}
	}
	return c
}
