package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/hash"
	"github.com/shandysiswandi/stepup/internal/pkg/valueobject"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
)

// Handler executes one operation after its code has been confirmed.
type Handler interface {
	// Validate checks the payload before the code is consumed.
	Validate(payload valueobject.JSONMap) error
	// Execute runs the side effect for the user bound to the code and
	// returns the result reported to the caller.
	Execute(ctx context.Context, userID int64, payload valueobject.JSONMap) (string, error)
}

// Registry binds operation numbers to handlers.
type Registry struct {
	handlers map[int]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[int]Handler)}
}

func (r *Registry) Register(number int, h Handler) {
	r.handlers[number] = h
}

func (r *Registry) Handler(number int) (Handler, bool) {
	h, ok := r.handlers[number]
	return h, ok
}

// Numbers returns the registered operation numbers in ascending order.
func (r *Registry) Numbers() []int {
	out := make([]int, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func (s *Usecase) defaultRegistry() *Registry {
	delay := func() time.Duration { return s.cfg.GetSecond("modules.stepup.handler.delay_seconds") }

	r := NewRegistry()
	r.Register(entity.OperationUpdatePassword, &updatePassword{repo: s.repoDB, hasher: s.passwordHasher})
	r.Register(entity.OperationSendReport, &sendReport{delay: delay})
	r.Register(entity.OperationMakeTransfer, &makeTransfer{delay: delay})
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type passwordWriter interface {
	UpdateUserPassword(ctx context.Context, id int64, hash string) error
}

type updatePassword struct {
	repo   passwordWriter
	hasher func() hash.Hash
}

// maxPasswordBytes is the bcrypt input ceiling.
const maxPasswordBytes = 72

func (h *updatePassword) Validate(p valueobject.JSONMap) error {
	pw, ok := p.Get("password").(string)
	if !ok {
		return errMissingParameter("password")
	}
	if len(pw) > maxPasswordBytes {
		return errInvalidParameter("password", "Password must be at most 72 bytes")
	}
	return nil
}

func (h *updatePassword) Execute(ctx context.Context, userID int64, p valueobject.JSONMap) (string, error) {
	hashed, err := h.hasher().Hash(p.GetString("password"))
	if err != nil {
		return "", err
	}

	if err := h.repo.UpdateUserPassword(ctx, userID, string(hashed)); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "password updated", "user_id", userID)
	return entity.ResultSuccess, nil
}

type sendReport struct {
	delay func() time.Duration
}

func (h *sendReport) Validate(p valueobject.JSONMap) error {
	if p.Get("reportType") == nil {
		return errMissingParameter("reportType")
	}
	return nil
}

func (h *sendReport) Execute(ctx context.Context, userID int64, p valueobject.JSONMap) (string, error) {
	reportType := p.Get("reportType")
	slog.InfoContext(ctx, "generating report", "user_id", userID, "report_type", reportType)

	if err := sleep(ctx, h.delay()); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "report sent", "user_id", userID, "report_type", reportType)
	return entity.ResultSuccess, nil
}

type makeTransfer struct {
	delay func() time.Duration
}

func (h *makeTransfer) Validate(p valueobject.JSONMap) error {
	if p.Get("amount") == nil {
		return errMissingParameter("amount")
	}
	return nil
}

// Execute reports "failed": no transfer rail is connected.
func (h *makeTransfer) Execute(ctx context.Context, userID int64, p valueobject.JSONMap) (string, error) {
	amount := p.Get("amount")
	slog.InfoContext(ctx, "initiating transfer", "user_id", userID, "amount", amount)

	if err := sleep(ctx, h.delay()); err != nil {
		return "", err
	}

	slog.WarnContext(ctx, "transfer rail not connected", "user_id", userID, "amount", amount)
	return entity.ResultFailed, nil
}
