// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате, а также
// сопоставляет ошибки домена с HTTP-статусами.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/cortex/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "len":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be %s characters long", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// publicErrors ошибки, текст которых можно показать клиенту. Конкретные
// ошибки идут раньше базовых видов.
var publicErrors = []error{
	models.ErrAccountNotFound,
	models.ErrPlanNotFound,
	models.ErrSubscriptionNotFound,
	models.ErrGenerationNotFound,
	models.ErrImageNotFound,
	models.ErrActiveSubscriptionExists,
	models.ErrEmailTaken,
	models.ErrInvalidTransition,
	models.ErrInvalidStyle,
	models.ErrInvalidRequestType,
	models.ErrInvalidPrompt,
	models.ErrInvalidAmount,
	models.ErrWeakPassword,
	models.ErrInvalidUsername,
	models.ErrInvalidCode,
	models.ErrInvalidResetToken,
	models.ErrIncorrectPassword,
	models.ErrUnsupportedFileType,
	models.ErrFileTooLarge,
	models.ErrInvalidCredentials,
	models.ErrInvalidToken,
	models.ErrAccountInactive,
	models.ErrInsufficientTokens,
	models.ErrNotFound,
	models.ErrConflict,
	models.ErrInvalidInput,
	models.ErrUnauthorized,
	models.ErrForbidden,
}

// StatusCode возвращает HTTP-статус для ошибки домена.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FromError возвращает HTTP-статус и тело ответа для ошибки. Текст
// внутренних ошибок клиенту не раскрывается.
func FromError(err error) (int, ErrorResponse) {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return StatusCode(err), Error(known.Error())
		}
	}
	return http.StatusInternalServerError, Error("internal error")
}

// WriteError отвечает клиенту статусом и текстом, соответствующими ошибке.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := FromError(err)
	render.Status(r, code)
	render.JSON(w, r, body)
}
