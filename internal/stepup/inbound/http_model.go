package inbound

import (
	"net/http"
	"time"
)

type OperationResponse struct {
	Number      int    `json:"operationNumber"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CodeHistoryResponse struct {
	ID              int64     `json:"id,string"`
	OperationNumber int       `json:"operationNumber"`
	Channel         string    `json:"channel"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

type PerformRequest struct {
	OperationNumber int    `json:"operationNumber"`
	Channel         string `json:"channel"`
}

type PerformResponse struct{}

func (PerformResponse) StatusCode() int {
	return http.StatusAccepted
}

func (PerformResponse) Message() string {
	return "OTP sent. Confirm the operation with the code you received."
}

type ConfirmResponse struct {
	OperationNumber int    `json:"operationNumber"`
	OperationName   string `json:"operationName"`
	Username        string `json:"username"`
	Result          string `json:"result"`
}

func (r ConfirmResponse) Message() string {
	return "Operation " + r.OperationName + " " + r.Result
}

type ConfigResponse struct {
	Length     int       `json:"length"`
	TTLSeconds int       `json:"ttlSeconds"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
}

type UpdateConfigRequest struct {
	Length     int `json:"length"`
	TTLSeconds int `json:"ttlSeconds"`
}

type SweepResponse struct {
	Expired int64 `json:"expired"`
	Skipped bool  `json:"skipped"`
}
