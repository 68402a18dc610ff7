package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/goroutine"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/idempotency"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/ratelimit"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	cfg       *entity.OtpConfig
	ops       map[int]entity.Operation
	users     map[int64]*entity.User
	passwords map[int64]string
	codes     []*entity.Code

	conflicts   int
	passwordErr error
	// afterPasswordWrite runs once a new hash is stored.
	afterPasswordWrite func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		cfg: &entity.OtpConfig{CodeLength: 6, TTLSeconds: 300},
		ops: map[int]entity.Operation{
			101: {Number: 101, Name: "update-password"},
			102: {Number: 102, Name: "send-report"},
			103: {Number: 103, Name: "make-transfer"},
		},
		users: map[int64]*entity.User{
			1: {ID: 1, Username: "alice", Email: "alice@example.com"},
			2: {ID: 2, Username: "bob", Email: "bob@example.com"},
		},
		passwords: map[int64]string{},
	}
}

func (r *fakeRepo) GetOtpConfig(context.Context) (*entity.OtpConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		return nil, goerror.ErrNotFound
	}
	cfg := *r.cfg
	return &cfg, nil
}

func (r *fakeRepo) UpdateOtpConfig(_ context.Context, cfg entity.OtpConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = &cfg
	return nil
}

func (r *fakeRepo) GetOperation(_ context.Context, number int) (*entity.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[number]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &op, nil
}

func (r *fakeRepo) ListOperations(context.Context) ([]entity.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Operation, 0, len(r.ops))
	for n := 100; n < 200; n++ {
		if op, ok := r.ops[n]; ok {
			out = append(out, op)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetUser(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) UpdateUserPassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.passwordErr != nil {
		return r.passwordErr
	}
	r.passwords[id] = hash
	if r.afterPasswordWrite != nil {
		r.afterPasswordWrite()
	}
	return nil
}

func (r *fakeRepo) CreateCode(_ context.Context, code entity.Code, supersede bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts > 0 {
		r.conflicts--
		return 0, goerror.ErrConflict
	}
	for _, c := range r.codes {
		if c.Status == entity.CodeStatusActive && c.CodeHash == code.CodeHash {
			return 0, goerror.ErrConflict
		}
	}

	var n int64
	if supersede {
		for _, c := range r.codes {
			if c.Status == entity.CodeStatusActive && c.UserID == code.UserID && c.OperationNumber == code.OperationNumber {
				c.Status = entity.CodeStatusExpired
				c.UpdatedAt = code.CreatedAt
				n++
			}
		}
	}

	cp := code
	r.codes = append(r.codes, &cp)
	return n, nil
}

func (r *fakeRepo) GetCodeByHash(_ context.Context, hash string) (*entity.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *entity.Code
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.CodeHash != hash {
			continue
		}
		if c.Status == entity.CodeStatusActive {
			found = c
			break
		}
		if found == nil {
			found = c
		}
	}
	if found == nil {
		return nil, goerror.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *fakeRepo) ListCodesByUser(_ context.Context, userID int64) ([]entity.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Code
	for i := len(r.codes) - 1; i >= 0; i-- {
		if r.codes[i].UserID == userID {
			out = append(out, *r.codes[i])
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkCodeUsed(_ context.Context, id int64, now, notBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.ID == id && c.Status == entity.CodeStatusActive && !c.CreatedAt.Before(notBefore) {
			c.Status = entity.CodeStatusUsed
			c.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) MarkCodesExpired(_ context.Context, createdBefore, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, c := range r.codes {
		if c.Status == entity.CodeStatusActive && c.CreatedAt.Before(createdBefore) {
			c.Status = entity.CodeStatusExpired
			c.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) statuses() map[entity.CodeStatus]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := map[entity.CodeStatus]int{}
	for _, c := range r.codes {
		out[c.Status]++
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDispatcher struct {
	mu      sync.Mutex
	notices []delivery.Notice
	err     error
}

func (d *fakeDispatcher) Send(_ context.Context, n delivery.Notice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.notices = append(d.notices, n)
	return nil
}

func (d *fakeDispatcher) last(t *testing.T) delivery.Notice {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.notices)
	return d.notices[len(d.notices)-1]
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notices)
}

type fakeIdempotency struct {
	mu     sync.Mutex
	states map[string]error
}

func (f *fakeIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	f.mu.Lock()
	if st, ok := f.states[key]; ok {
		f.mu.Unlock()
		return st
	}
	f.states[key] = idempotency.ErrAlreadyInProgress
	f.mu.Unlock()

	err := fn(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.states[key] = idempotency.ErrAlreadyFailed
		return err
	}
	f.states[key] = idempotency.ErrAlreadyCompleted
	return nil
}

type fixture struct {
	uc    *Usecase
	repo  *fakeRepo
	clock *fakeClock
	disp  *fakeDispatcher
	idemp *fakeIdempotency
}

type fixtureOption struct {
	supersede    bool
	performLimit int
}

func newFixture(t *testing.T, opts ...func(*fixtureOption)) *fixture {
	t.Helper()

	o := fixtureOption{supersede: true, performLimit: 100}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.NewViperFromBytes("yaml", fmt.Appendf(nil, `
modules:
  stepup:
    handler:
      delay_seconds: 0
    otp:
      supersede_active: %t
      max_generate_attempts: 5
    rate_limit:
      perform_limit: %d
      perform_window_seconds: 60
`, o.supersede, o.performLimit))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	ids, err := uid.NewSnowflake()
	require.NoError(t, err)

	f := &fixture{
		repo:  newFakeRepo(),
		clock: &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		disp:  &fakeDispatcher{},
		idemp: &fakeIdempotency{states: map[string]error{}},
	}
	f.uc = New(Dependency{
		RepoDB:      f.repo,
		Dispatcher:  f.disp,
		Idempotency: f.idemp,
		Limiter:     ratelimit.NewMemory(f.clock),
		Validator:   v,
		Config:      cfg,
		Gate:        authz.NewGate(enforcer),
		HMAC:        hash.NewHMACSHA256("secret"),
		Bcrypt:      hash.NewBcrypt(4, ""),
		Argon2ID:    hash.NewArgon2id(hash.Argon2idConfig{MemoryKiB: 1024, Iterations: 1}),
		UID:         ids,
		Clock:       f.clock,
		Pool:        goroutine.NewPool(4),
		Instrument:  instrument.NewNoop(),
	})

	return f
}

func withSupersede(on bool) func(*fixtureOption) {
	return func(o *fixtureOption) { o.supersede = on }
}

func withPerformLimit(n int) func(*fixtureOption) {
	return func(o *fixtureOption) { o.performLimit = n }
}

func asUser(id int64, username string) context.Context {
	return session.SetIdentity(context.Background(), session.Identity{UserID: id, Username: username, Role: authz.RoleUser})
}

func asAdmin() context.Context {
	return session.SetIdentity(context.Background(), session.Identity{UserID: 9, Username: "root", Role: authz.RoleAdmin})
}

func requireCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	require.Error(t, err)
	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "want *goerror.Error, got %T: %v", err, err)
	require.Equal(t, code, gerr.Code(), "error: %v", err)
}
