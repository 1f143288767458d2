package models

import "time"

// Типы запросов на генерацию.
const (
	RequestColorization = "colorization"
	RequestStyle        = "style"
	RequestGeneration   = "generation"
)

// Статусы запроса на генерацию.
const (
	GenerationPending    = "pending"
	GenerationProcessing = "processing"
	GenerationCompleted  = "completed"
	GenerationFailed     = "failed"
)

// DefaultResolution разрешение, с которым создаются все запросы.
const DefaultResolution = "1024x1024"

// DefaultStyle стиль, подставляемый в галерее для изображений без запроса.
const DefaultStyle = "realistic"

// Styles допустимые стили генерации.
var Styles = map[string]struct{}{
	"realistic": {},
	"anime":     {},
	"painting":  {},
	"cyberpunk": {},
	"fantasy":   {},
	"abstract":  {},
}

// GenerationCost стоимость запроса в токенах по его типу. Тип проверяется
// до расчёта, пустой тип считается генерацией.
func GenerationCost(requestType string) int64 {
	switch requestType {
	case RequestColorization:
		return 25
	case RequestStyle:
		return 100
	default:
		return 350
	}
}

// GenerationRequest запрос на генерацию изображения.
type GenerationRequest struct {
	ID            int64
	AccountID     int64
	RequestType   string
	Prompt        string
	InputImageURL *string
	TokensUsed    *int64
	Status        string
	Style         string
	Resolution    string
	ErrorMessage  *string
	CreatedAt     time.Time
}

// GenerationCreated ответ на создание запроса.
type GenerationCreated struct {
	RequestID  int64  `json:"request_id"`
	TokensUsed int64  `json:"tokens_used"`
	Status     string `json:"status"`
}

// GenerationStatus состояние запроса, ссылки на изображение есть только у завершённых.
type GenerationStatus struct {
	ID           int64     `json:"id"`
	Status       string    `json:"status"`
	RequestType  string    `json:"request_type"`
	Prompt       string    `json:"prompt"`
	Style        string    `json:"style"`
	TokensUsed   *int64    `json:"tokens_used,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	ImageURL     *string   `json:"image_url"`
	OriginalURL  *string   `json:"original_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenerationHistoryItem элемент истории генераций.
type GenerationHistoryItem struct {
	ID          int64     `json:"id"`
	RequestType string    `json:"request_type"`
	Prompt      string    `json:"prompt"`
	Style       string    `json:"style"`
	Status      string    `json:"status"`
	TokensUsed  *int64    `json:"tokens_used,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerationJob задание для бэкенда генерации, публикуется в очередь.
type GenerationJob struct {
	RequestID     int64   `json:"request_id"`
	AccountID     int64   `json:"account_id"`
	RequestType   string  `json:"request_type"`
	Prompt        string  `json:"prompt"`
	Style         string  `json:"style"`
	Resolution    string  `json:"resolution"`
	InputImageURL *string `json:"input_image_url,omitempty"`
}

// GenerationResult результат работы бэкенда генерации.
type GenerationResult struct {
	RequestID    int64  `json:"request_id"`
	Status       string `json:"status"`
	ImageURL     string `json:"image_url,omitempty"`
	OriginalURL  string `json:"original_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
