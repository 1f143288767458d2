package models

import "time"

// TokenBalance текущий баланс токенов аккаунта.
type TokenBalance struct {
	Balance             int64   `json:"balance"`
	TotalUsed           int64   `json:"total_used"`
	PercentageRemaining float64 `json:"percentage_remaining"`
}

// TokenUsage запись истории списаний.
type TokenUsage struct {
	ID          int64     `json:"id"`
	RequestType string    `json:"request_type"`
	TokensUsed  int64     `json:"tokens_used"`
	Prompt      string    `json:"prompt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
