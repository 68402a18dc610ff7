package inbound

import (
	"context"

	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/identity/usecase"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
)

type uc interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Logout(ctx context.Context, token string) error

	ListUsers(ctx context.Context) ([]entity.User, error)
	DeleteUser(ctx context.Context, in usecase.DeleteUserInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Auth (public except logout)
	r.POST("/api/v1/register", end.Register)
	r.POST("/api/v1/login", end.Login)
	r.POST("/api/v1/logout", end.Logout)

	// User directory (need ADMIN)
	r.GET("/api/v1/admin/users", end.ListUsers)
	r.DELETE("/api/v1/admin/users/:id", end.DeleteUser)
}
