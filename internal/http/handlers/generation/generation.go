// Package generation реализует HTTP-обработчики запросов на генерацию изображений.
//
// Создание запроса списывает токены и ставит задачу в очередь, статус и
// история читаются по ID владельца. Удаление возвращает токены за запросы,
// которые не дали результата.
package generation

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

// Service описывает жизненный цикл запроса на генерацию.
type Service interface {
	Create(ctx context.Context, accountID int64, in models.GenerationCreateRequest) (*models.GenerationCreated, error)
	Status(ctx context.Context, accountID, requestID int64) (*models.GenerationStatus, error)
	Delete(ctx context.Context, accountID, requestID int64) (int64, error)
	History(ctx context.Context, accountID int64, limit int) ([]models.GenerationHistoryItem, error)
}

// Handler обрабатывает запросы /generate.
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

// Create godoc
// @Summary Новый запрос на генерацию
// @Description Списывает токены по типу запроса и ставит задачу в очередь
// @Tags generate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GenerationCreateRequest true "Промпт, стиль и тип запроса"
// @Success 200 {object} response.Response{data=models.GenerationCreated}
// @Failure 400 {object} response.ErrorResponse
// @Failure 402 {object} response.ErrorResponse
// @Router /api/v1/generate/image [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.generation.Create")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	var req models.GenerationCreateRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), accountID, req)
	if err != nil {
		log.Warn("failed to create generation request", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("generation request created",
		slog.Int64("request_id", created.RequestID),
		slog.Int64("tokens_used", created.TokensUsed),
	)
	render.JSON(w, r, response.OKWithData(created))
}

// Status godoc
// @Summary Статус запроса
// @Tags generate
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID запроса"
// @Success 200 {object} response.Response{data=models.GenerationStatus}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/generate/status/{id} [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.generation.Status")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	id, ok := request.URLParamID(w, r, log, "id")
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), accountID, id)
	if err != nil {
		log.Warn("failed to get generation status", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(status))
}

// Delete godoc
// @Summary Удаление запроса
// @Description Токены возвращаются, если запрос ожидал обработки или завершился ошибкой
// @Tags generate
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID запроса"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/generate/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.generation.Delete")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	id, ok := request.URLParamID(w, r, log, "id")
	if !ok {
		return
	}

	refunded, err := h.service.Delete(r.Context(), accountID, id)
	if err != nil {
		log.Warn("failed to delete generation request", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("generation request deleted", slog.Int64("request_id", id), slog.Int64("refunded", refunded))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message":         "Generation deleted successfully",
		"tokens_refunded": refunded,
	}))
}

// History godoc
// @Summary История генераций
// @Tags generate
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Количество записей" default(50)
// @Success 200 {object} response.Response{data=[]models.GenerationHistoryItem}
// @Router /api/v1/generate/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.generation.History")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	limit, err := request.QueryInt(r, "limit", 0)
	if err != nil {
		request.BadQuery(w, r, log, "limit", err)
		return
	}

	items, err := h.service.History(r.Context(), accountID, limit)
	if err != nil {
		log.Error("failed to get generation history", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(items))
}
