package models

import "time"

// Статусы платежа.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// DefaultPaymentMethod способ оплаты по умолчанию.
const DefaultPaymentMethod = "card"

// PaymentTransaction локальная запись об оплате подписки. Только добавляется.
type PaymentTransaction struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"account_id"`
	SubscriptionID *int64    `json:"subscription_id,omitempty"`
	Amount         float64   `json:"amount"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
