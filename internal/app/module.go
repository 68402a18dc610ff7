package app

import (
	"fmt"

	"github.com/shandysiswandi/stepup/internal/identity"
	"github.com/shandysiswandi/stepup/internal/notification"
	"github.com/shandysiswandi/stepup/internal/stepup"
)

func (a *App) initModules() error {
	dispatcher, err := notification.New(notification.Dependency{
		Config:     a.config,
		Clock:      a.clock,
		Instrument: a.ins,
		Validator:  a.validator,
		Mail:       a.mail,
		Publisher:  a.messaging,
		Storage:    a.storage,
		HTTPClient: a.httpClient,
	})
	if err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	a.dispatcher = dispatcher

	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			DBConn:     a.dbConn,
			Router:     a.router,
			Sessions:   a.sessions,
			Gate:       a.gate,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			Bcrypt:     a.bcrypt,
			Argon2ID:   a.argon2id,
			Clock:      a.clock,
			Validator:  a.validator,
			Storage:    a.storage,
		}); err != nil {
			return fmt.Errorf("identity: %w", err)
		}
	}

	if a.config.GetBool("modules.stepup.enabled") {
		if err := stepup.New(stepup.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			Router:      a.router,
			Goroutine:   a.goroutine,
			Pool:        a.pool,
			Dispatcher:  a.dispatcher,
			Idempotency: a.idemp,
			Limiter:     a.limiter,
			Gate:        a.gate,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			HMAC:        a.hmac,
			Bcrypt:      a.bcrypt,
			Argon2ID:    a.argon2id,
			Clock:       a.clock,
			Validator:   a.validator,
		}); err != nil {
			return fmt.Errorf("stepup: %w", err)
		}
	}

	return nil
}
