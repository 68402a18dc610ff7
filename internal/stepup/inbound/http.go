package inbound

import (
	"context"

	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/stepup/entity"
	"github.com/shandysiswandi/stepup/internal/stepup/usecase"
)

type uc interface {
	ListOperations(ctx context.Context) ([]entity.Operation, error)
	ListCodes(ctx context.Context) ([]usecase.CodeHistoryItem, error)
	Perform(ctx context.Context, in usecase.PerformInput) error
	Confirm(ctx context.Context, in usecase.ConfirmInput) (*usecase.ConfirmOutput, error)

	GetConfig(ctx context.Context) (*entity.OtpConfig, error)
	UpdateConfig(ctx context.Context, in usecase.UpdateConfigInput) error
	TriggerSweep(ctx context.Context) (*usecase.SweepOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Step-up (need authenticated)
	r.GET("/api/v1/operations", end.ListOperations)
	r.GET("/api/v1/operation/codes", end.ListCodes)
	r.POST("/api/v1/operation/perform", end.Perform)
	r.PATCH("/api/v1/operation/confirm", end.Confirm)

	// Administration (need ADMIN)
	r.GET("/api/v1/admin/config", end.GetConfig)
	r.PATCH("/api/v1/admin/config", end.UpdateConfig)
	r.POST("/api/v1/admin/sweep", end.TriggerSweep)
}
