// Package auth реализует HTTP-обработчики регистрации, входа, подтверждения
// почты, сброса пароля и обновления токенов.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/cortex/internal/http/request"
	"github.com/magabrotheeeer/cortex/internal/http/response"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Profile, error)
	VerifyEmail(ctx context.Context, code string) error
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handler обрабатывает запросы /auth.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Register godoc
// @Summary Регистрация
// @Description Создает аккаунт и отправляет код подтверждения на почту
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Данные регистрации"
// @Success 201 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Register")

	var req models.RegisterRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	profile, err := h.service.Register(r.Context(), req)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("account registered", slog.Int64("account_id", profile.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    profile,
	}))
}

// VerifyEmail godoc
// @Summary Подтверждение почты
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyEmailRequest true "Код из письма"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.VerifyEmail")

	var req models.VerifyEmailRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Code); err != nil {
		log.Warn("email verification failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Email verified successfully",
	}))
}

// Login godoc
// @Summary Вход
// @Description Проверяет пароль и выдает пару access/refresh токенов
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Почта и пароль"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Login")

	var req models.LoginRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn("login failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(tokens))
}

// Refresh godoc
// @Summary Обновление токенов
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshTokenRequest true "Refresh токен"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/auth/refresh-token [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Refresh")

	var req models.RefreshTokenRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		log.Warn("token refresh failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(tokens))
}

// ForgotPassword godoc
// @Summary Запрос сброса пароля
// @Description Всегда отвечает успехом, чтобы не раскрывать зарегистрированные адреса
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "Почта"
// @Success 200 {object} response.Response
// @Router /api/v1/auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ForgotPassword")

	var req models.ForgotPasswordRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		log.Error("failed to start password reset", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "If the email exists, a password reset link has been sent",
	}))
}

// ResetPassword godoc
// @Summary Установка нового пароля
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResetPasswordRequest true "Токен и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ResetPassword")

	var req models.ResetPasswordRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		log.Warn("password reset failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Password reset successfully",
	}))
}

// Logout godoc
// @Summary Выход
// @Description Токены не хранятся на сервере, клиенту достаточно их удалить
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Successfully logged out",
	}))
}
