package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/clock"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goroutine"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/idempotency"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/mail"
	"github.com/shandysiswandi/stepup/internal/pkg/messaging"
	"github.com/shandysiswandi/stepup/internal/pkg/ratelimit"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	pool      *goroutine.Pool
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	argon2id  hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	tokens    uid.StringID
	uuid      uid.StringID

	// resources
	dbConn     *pgxpool.Pool
	cacheConn  *redis.Client
	idemp      idempotency.Idempotency
	limiter    ratelimit.Limiter
	sessions   session.Store
	mail       mail.Mail
	messaging  messaging.Publisher
	storage    storage.Storage
	httpClient *http.Client
	gate       *authz.Gate

	// modules
	dispatcher delivery.Dispatcher

	// server
	router     *router.Router
	httpServer *http.Server

	// released in reverse order of registration
	closers []closer
}

// New wires the application. When a step fails, everything opened by the
// earlier steps is released before the error is returned.
func New() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"database", a.initDatabase},
		{"cache", a.initCache},
		{"session", a.initSession},
		{"mail", a.initMail},
		{"storage", a.initStorage},
		{"messaging", a.initMessaging},
		{"casbin", a.initCasbin},
		{"http server", a.initHTTPServer},
		{"modules", a.initModules},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			cancel()
			a.release(context.Background())
			return nil, fmt.Errorf("init %s: %w", step.name, err)
		}
	}

	return a, nil
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) release(ctx context.Context) {
	for _, c := range slices.Backward(a.closers) {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", c.name, "error", err)
		}
	}
	a.closers = nil
}
