package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/identity/usecase"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		Email:          req.Email,
		Role:           req.Role,
		Phone:          req.Phone,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{ID: resp.ID, Username: resp.Username, Role: resp.Role}, nil
}

func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		Token:    resp.Token,
		UserID:   resp.UserID,
		Username: resp.Username,
		Role:     resp.Role,
	}, nil
}

func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	token, _ := r.Token()
	if err := h.uc.Logout(r.Context(), token); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) ListUsers(r *router.Request) (any, error) {
	users, err := h.uc.ListUsers(r.Context())
	if err != nil {
		return nil, err
	}

	return lo.Map(users, func(u entity.User, _ int) UserResponse {
		return UserResponse{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			Role:           u.Role,
			Phone:          u.Phone,
			TelegramChatID: u.TelegramChatID,
			CreatedAt:      u.CreatedAt,
		}
	}), nil
}

func (h *HTTPEndpoint) DeleteUser(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteUser(r.Context(), usecase.DeleteUserInput{ID: id}); err != nil {
		return nil, err
	}

	return nil, nil
}
