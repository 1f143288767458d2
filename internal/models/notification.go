package models

import "time"

// Виды писем, которые отправляет sender.
const (
	EmailVerification          = "verification"
	EmailPasswordReset         = "password_reset"
	EmailSubscriptionActivated = "subscription_activated"
	EmailSubscriptionFailed    = "subscription_failed"
	EmailSubscriptionExpiring  = "subscription_expiring"
	EmailLowBalance            = "low_balance"
)

// EmailMessage сообщение для очереди уведомлений.
type EmailMessage struct {
	Kind     string     `json:"kind"`
	To       string     `json:"to"`
	Username string     `json:"username,omitempty"`
	Code     string     `json:"code,omitempty"`
	Token    string     `json:"token,omitempty"`
	PlanName string     `json:"plan_name,omitempty"`
	Balance  int64      `json:"balance,omitempty"`
	EndDate  *time.Time `json:"end_date,omitempty"`
}
