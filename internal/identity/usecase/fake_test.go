package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/pkg/authz"
	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/pkg/uid"
	"github.com/shandysiswandi/stepup/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[int64]entity.User
	codes map[int64]int64

	err error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]entity.User{}, codes: map[int64]int64{}}
}

func (r *fakeRepo) CreateUser(_ context.Context, user entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return &entity.DuplicateError{Constraint: entity.ConstraintUsername}
		}
		if u.Role == authz.RoleAdmin && user.Role == authz.RoleAdmin {
			return &entity.DuplicateError{Constraint: entity.ConstraintSingleAdmin}
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeRepo) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (r *fakeRepo) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (r *fakeRepo) ListUsersByRole(_ context.Context, role string) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []entity.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) DeleteUser(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return 0, goerror.ErrNotFound
	}
	delete(r.users, id)
	n := r.codes[id]
	delete(r.codes, id)
	return n, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixture struct {
	uc       *Usecase
	repo     *fakeRepo
	sessions *session.MemoryStore
	store    *storage.Memory
}

func newFixture(t *testing.T, algorithm string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
hash:
  password:
    algorithm: `+algorithm+`
notification:
  file:
    bucket: codes
    prefix: otp
`))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	ids, err := uid.NewSnowflake()
	require.NoError(t, err)

	clk := fixedClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	f := &fixture{
		repo: newFakeRepo(),
		sessions: session.NewMemoryStore(session.Options{
			TTL:    time.Hour,
			Tokens: uid.NewToken(32),
			Digest: hash.NewHMACSHA256("session"),
			Clock:  clk,
		}),
		store: storage.NewMemory(),
	}
	f.uc = New(Dependency{
		RepoDB:     f.repo,
		Sessions:   f.sessions,
		Storage:    f.store,
		Gate:       authz.NewGate(enforcer),
		Validator:  v,
		Config:     cfg,
		Bcrypt:     hash.NewBcrypt(4, ""),
		Argon2ID:   hash.NewArgon2id(hash.Argon2idConfig{MemoryKiB: 1024, Iterations: 1}),
		UID:        ids,
		Clock:      clk,
		Instrument: instrument.NewNoop(),
	})

	return f
}

func (f *fixture) register(t *testing.T, username, role string) *RegisterOutput {
	t.Helper()
	out, err := f.uc.Register(context.Background(), RegisterInput{
		Username: username,
		Password: "password1",
		Email:    strings.ToLower(username) + "@example.com",
		Role:     role,
	})
	require.NoError(t, err)
	return out
}

func asIdentity(id session.Identity) context.Context {
	return session.SetIdentity(context.Background(), id)
}

func requireCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	require.Error(t, err)
	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "want *goerror.Error, got %T: %v", err, err)
	require.Equal(t, code, gerr.Code(), "error: %v", err)
}
