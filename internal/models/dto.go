package models

// RegisterRequest данные регистрации.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username,omitempty"`
}

// LoginRequest данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest код подтверждения почты.
type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ForgotPasswordRequest запрос на сброс пароля.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest установка нового пароля по токену.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// RefreshTokenRequest обновление пары токенов.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest изменение профиля, nil означает "не менять".
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty"`
}

// ChangePasswordRequest смена пароля.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// SubscribeRequest оформление подписки.
type SubscribeRequest struct {
	PlanID        int64  `json:"plan_id" validate:"required,gt=0"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// CancelRequest отмена подписки, причина только логируется.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// GenerationCreateRequest создание запроса на генерацию.
type GenerationCreateRequest struct {
	Prompt        string  `json:"prompt" validate:"required"`
	Style         string  `json:"style" validate:"required"`
	RequestType   string  `json:"request_type,omitempty"`
	InputImageURL *string `json:"input_image_url,omitempty" validate:"omitempty,url"`
}
