package usecase

import (
	"context"
	"errors"

	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

var (
	errInvalidCredential = goerror.NewBusiness("Invalid username or password", goerror.CodeUnauthorized)
	errUsernameTaken     = goerror.NewBusiness("Username already exists", goerror.CodeConflict)
	errAdminExists       = goerror.NewBusiness("Administrator already exists", goerror.CodeConflict)
	errUserNotFound      = goerror.NewBusiness("user not found", goerror.CodeNotFound)
	errDeleteSelf        = goerror.NewBusiness("cannot delete your own account", goerror.CodeForbidden)
)

func duplicateOf(err error) (string, bool) {
	var dup *entity.DuplicateError
	if errors.As(err, &dup) {
		return dup.Constraint, true
	}
	return "", false
}

type repoDB interface {
	CreateUser(ctx context.Context, user entity.User) error
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]entity.User, error)
	// DeleteUser removes the user and every code issued to it in one transaction.
	DeleteUser(ctx context.Context, id int64) (codes int64, err error)
}

type Usecase struct {
	repoDB    repoDB
	sessions  session.Store
	storage   storage.Storage
	gate      *authz.Gate
	validator validator.Validator
	cfg       config.Config
	bcrypt    hash.Hash
	argon2id  hash.Hash
	uid       uid.NumberID
	clock     clock.Clocker
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	Sessions   session.Store
	Storage    storage.Storage
	Gate       *authz.Gate
	Validator  validator.Validator
	Config     config.Config
	Bcrypt     hash.Hash
	Argon2ID   hash.Hash
	UID        uid.NumberID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		sessions:  dep.Sessions,
		storage:   dep.Storage,
		gate:      dep.Gate,
		validator: dep.Validator,
		cfg:       dep.Config,
		bcrypt:    dep.Bcrypt,
		argon2id:  dep.Argon2ID,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) passwordHasher() hash.Hash {
	return hash.SelectPassword(s.cfg.GetString("hash.password.algorithm"), s.bcrypt, s.argon2id)
}
