package models

import "time"

// Статусы подписки.
const (
	SubscriptionActive    = "active"
	SubscriptionInactive  = "inactive"
	SubscriptionCancelled = "cancelled"
)

// Plan тарифный план из каталога.
type Plan struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	TokensIncluded int64   `json:"tokens_included"`
	DurationDays   int     `json:"duration_days"`
	Description    *string `json:"description,omitempty"`
	Note           *string `json:"note,omitempty"`
}

// Subscription запись о покупке плана аккаунтом.
type Subscription struct {
	ID        int64
	AccountID int64
	PlanID    int64
	StartDate time.Time
	EndDate   time.Time
	Status    string
	AutoRenew bool
	CreatedAt time.Time
}

// SubscriptionView текущая подписка вместе с названием плана и живым балансом.
type SubscriptionView struct {
	ID              int64     `json:"id"`
	PlanID          int64     `json:"plan_id"`
	PlanName        string    `json:"plan_name"`
	Status          string    `json:"status"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	AutoRenew       bool      `json:"auto_renew"`
	TokensTotal     int64     `json:"tokens_total"`
	TokensRemaining int64     `json:"tokens_remaining"`
}

// SubscribeResult результат оформления подписки.
type SubscribeResult struct {
	SubscriptionID int64     `json:"subscription_id"`
	PaymentID      int64     `json:"payment_id"`
	PlanName       string    `json:"plan_name"`
	TokensIncluded int64     `json:"tokens_included"`
	EndDate        time.Time `json:"end_date"`
}

// CancelResult результат отмены подписки.
type CancelResult struct {
	EndDate time.Time `json:"end_date"`
}

// ExpiringSubscription подписка, о завершении которой нужно напомнить.
type ExpiringSubscription struct {
	SubscriptionID int64
	AccountID      int64
	Email          string
	Username       *string
	PlanName       string
	EndDate        time.Time
}

// RenewalResult итог одного прохода обработки истёкших подписок.
type RenewalResult struct {
	Renewed     int `json:"renewed"`
	Deactivated int `json:"deactivated"`
	Failed      int `json:"failed"`
}
