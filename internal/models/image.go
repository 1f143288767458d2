package models

import "time"

// GeneratedImage изображение в галерее пользователя.
type GeneratedImage struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	RequestID   *int64    `json:"request_id,omitempty"`
	ImageURL    string    `json:"image_url"`
	OriginalURL *string   `json:"original_url,omitempty"`
	IsFavorite  bool      `json:"is_favorite"`
	Prompt      string    `json:"prompt"`
	Style       string    `json:"style"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserStats агрегированная статистика генераций пользователя.
type UserStats struct {
	TotalGenerations  int64            `json:"total_generations"`
	TotalTokensUsed   int64            `json:"total_tokens_used"`
	FavoriteStyle     *string          `json:"favorite_style"`
	StyleDistribution map[string]int64 `json:"style_distribution"`
}
