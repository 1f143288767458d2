// Package models содержит доменные структуры сервиса генерации изображений:
// аккаунты, тарифы и подписки, запросы на генерацию, изображения галереи
// и записи об оплате, а также DTO для приёма данных из JSON-запросов.
package models

import "time"

// Account представляет зарегистрированного пользователя вместе с его балансом токенов.
type Account struct {
	ID                      int64
	Email                   string
	Username                *string
	PasswordHash            string
	TokenBalance            int64
	IsActive                bool
	EmailVerified           bool
	VerificationCode        *string
	VerificationCodeExpires *time.Time
	ResetToken              *string
	ResetTokenExpires       *time.Time
	AvatarURL               *string
	CreatedAt               time.Time
}

// Profile публичное представление аккаунта.
type Profile struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      *string   `json:"username,omitempty"`
	TokenBalance  int64     `json:"token_balance"`
	EmailVerified bool      `json:"email_verified"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToProfile формирует публичный профиль аккаунта.
func (a *Account) ToProfile() Profile {
	return Profile{
		ID:            a.ID,
		Email:         a.Email,
		Username:      a.Username,
		TokenBalance:  a.TokenBalance,
		EmailVerified: a.EmailVerified,
		AvatarURL:     a.AvatarURL,
		CreatedAt:     a.CreatedAt,
	}
}

// TokenPair пара токенов, выдаваемая при входе и обновлении.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LowBalanceAccount аккаунт, которому нужно напомнить о малом остатке токенов.
type LowBalanceAccount struct {
	ID           int64
	Email        string
	Username     *string
	TokenBalance int64
}

// DisplayName имя для обращения в письмах: username, если задан, иначе email.
func DisplayName(username *string, email string) string {
	if username != nil && *username != "" {
		return *username
	}
	return email
}
