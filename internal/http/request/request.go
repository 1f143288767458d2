// Package request содержит общие шаги разбора входящих запросов:
// чтение JSON-тела с валидацией, ID аккаунта из контекста и числовые параметры.
package request

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cortex/internal/http/response"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
)

// DecodeJSON читает тело запроса в dst и проверяет его валидатором.
// При ошибке сам отвечает клиенту и возвращает false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Error("validation failed", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return false
		}
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}

// AccountID возвращает ID аккаунта, положенный JWT middleware.
func AccountID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	id, ok := middlewarectx.AccountIDFromContext(r.Context())
	if !ok {
		log.Error("account identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return 0, false
	}
	return id, true
}

// URLParamID разбирает положительный целый параметр пути name.
func URLParamID(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		log.Error("failed to decode id from url", slog.String("param", name))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return 0, false
	}
	return id, true
}

// QueryInt возвращает целый параметр строки запроса или def, если он не задан.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// BadQuery отвечает 400 для неверного параметра строки запроса.
func BadQuery(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string, err error) {
	log.Error("invalid query parameter", slog.String("param", name), sl.Err(err))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error("invalid query parameter "+name))
}
