package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/pkg/valueobject"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
	"github.com/shandysiswandi/stepup/internal/stepup/usecase"
)

// HTTPEndpoint exposes the step-up flow and its administration over HTTP.
type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) ListOperations(r *router.Request) (any, error) {
	ops, err := h.uc.ListOperations(r.Context())
	if err != nil {
		return nil, err
	}

	return lo.Map(ops, func(op entity.Operation, _ int) OperationResponse {
		return OperationResponse{Number: op.Number, Name: op.Name, Description: op.Description}
	}), nil
}

func (h *HTTPEndpoint) ListCodes(r *router.Request) (any, error) {
	items, err := h.uc.ListCodes(r.Context())
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(c usecase.CodeHistoryItem, _ int) CodeHistoryResponse {
		return CodeHistoryResponse{
			ID:              c.ID,
			OperationNumber: c.OperationNumber,
			Channel:         c.Channel,
			Status:          c.Status.String(),
			CreatedAt:       c.CreatedAt,
			ExpiresAt:       c.ExpiresAt,
		}
	}), nil
}

// Perform issues a code for an operation. An Idempotency-Key header makes
// retries of the same request send at most one code.
func (h *HTTPEndpoint) Perform(r *router.Request) (any, error) {
	var req PerformRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Perform(r.Context(), usecase.PerformInput{
		OperationNumber: req.OperationNumber,
		Channel:         req.Channel,
		IdempotencyKey:  r.GetHeader("Idempotency-Key"),
	}); err != nil {
		return nil, err
	}

	return PerformResponse{}, nil
}

// Confirm takes the code and the operation fields in one flat body, e.g.
// {"code":"123456","password":"..."}.
func (h *HTTPEndpoint) Confirm(r *router.Request) (any, error) {
	body := valueobject.JSONMap{}
	if err := r.DecodeBodyLoose(&body); err != nil {
		return nil, err
	}

	code, ok := body.LookupString("code")
	if !ok {
		return nil, goerror.NewInvalidInput(nil, "code", "Required parameter is missing or invalid")
	}

	resp, err := h.uc.Confirm(r.Context(), usecase.ConfirmInput{
		Code:    code,
		Payload: body.Without("code"),
	})
	if err != nil {
		return nil, err
	}

	return ConfirmResponse{
		OperationNumber: resp.OperationNumber,
		OperationName:   resp.OperationName,
		Username:        resp.Username,
		Result:          resp.Result,
	}, nil
}

func (h *HTTPEndpoint) GetConfig(r *router.Request) (any, error) {
	cfg, err := h.uc.GetConfig(r.Context())
	if err != nil {
		return nil, err
	}

	return ConfigResponse{Length: cfg.CodeLength, TTLSeconds: cfg.TTLSeconds, UpdatedAt: cfg.UpdatedAt}, nil
}

func (h *HTTPEndpoint) UpdateConfig(r *router.Request) (any, error) {
	var req UpdateConfigRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.UpdateConfig(r.Context(), usecase.UpdateConfigInput{
		Length:     req.Length,
		TTLSeconds: req.TTLSeconds,
	}); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) TriggerSweep(r *router.Request) (any, error) {
	out, err := h.uc.TriggerSweep(r.Context())
	if err != nil {
		return nil, err
	}

	return SweepResponse{Expired: out.Expired, Skipped: out.Skipped}, nil
}
