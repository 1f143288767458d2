// Package user реализует HTTP-обработчики профиля текущего пользователя:
// просмотр и изменение профиля, загрузку аватара, смену пароля и удаление аккаунта.
package user

import (
	"context"
	"errors"
	"io"
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

// multipartOverhead запас на заголовки multipart сверх размера файла.
const multipartOverhead = 1 << 20

// Service описывает бизнес-логику аккаунта.
type Service interface {
	Profile(ctx context.Context, accountID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, accountID int64, req models.UpdateProfileRequest) (*models.Profile, error)
	ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error
	UploadAvatar(ctx context.Context, accountID int64, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, accountID int64) error
}

// Handler обрабатывает запросы /user.
type Handler struct {
	log         *slog.Logger
	service     Service
	validate    *validator.Validate
	maxFileSize int64
}

// New создает Handler. maxFileSize ограничивает размер загружаемого аватара.
func New(log *slog.Logger, service Service, maxFileSize int64) *Handler {
	return &Handler{
		log:         log,
		service:     service,
		validate:    validator.New(),
		maxFileSize: maxFileSize,
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Profile godoc
// @Summary Профиль пользователя
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/user/profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Profile")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), accountID)
	if err != nil {
		log.Error("failed to get profile", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(profile))
}

// UpdateProfile godoc
// @Summary Изменение профиля
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Новые значения"
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/user/profile [patch]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UpdateProfile")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), accountID, req)
	if err != nil {
		log.Warn("failed to update profile", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(profile))
}

// UploadAvatar godoc
// @Summary Загрузка аватара
// @Description Принимает multipart-поле file, допускаются только изображения
// @Tags user
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Изображение"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/user/avatar [post]
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UploadAvatar")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, r, models.ErrFileTooLarge)
			return
		}
		log.Error("failed to read multipart file", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("field file is a required field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		log.Error("failed to read avatar", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read file"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	url, err := h.service.UploadAvatar(r.Context(), accountID, data, contentType)
	if err != nil {
		log.Warn("failed to upload avatar", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("avatar uploaded", slog.Int64("account_id", accountID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"avatar_url": url,
	}))
}

// ChangePassword godoc
// @Summary Смена пароля
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Старый и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/user/password [patch]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.ChangePassword")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), accountID, req.OldPassword, req.NewPassword); err != nil {
		log.Warn("failed to change password", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Password changed successfully",
	}))
}

// Delete godoc
// @Summary Удаление аккаунта
// @Description Аккаунт отключается, данные сохраняются
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/user/account [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Delete")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), accountID); err != nil {
		log.Error("failed to delete account", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Account deleted successfully",
	}))
}
