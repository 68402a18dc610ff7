package inbound

import (
	"net/http"
	"time"
)

type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Phone          string `json:"phone"`
	TelegramChatID string `json:"telegramChatId"`
}

type RegisterResponse struct {
	ID       int64  `json:"id,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (RegisterResponse) StatusCode() int {
	return http.StatusCreated
}

func (RegisterResponse) Message() string {
	return "user registered"
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UserResponse struct {
	ID             int64     `json:"id,string"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Phone          string    `json:"phone,omitempty"`
	TelegramChatID string    `json:"telegramChatId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
