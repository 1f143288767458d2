// Package tokens реализует HTTP-обработчики баланса токенов и истории списаний.
package tokens

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/cortex/internal/http/request"
	"github.com/magabrotheeeer/cortex/internal/http/response"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Service описывает операции учета токенов.
type Service interface {
	Balance(ctx context.Context, accountID int64) (*models.TokenBalance, error)
	UsageHistory(ctx context.Context, accountID int64, limit int) ([]models.TokenUsage, error)
}

// Handler обрабатывает запросы /tokens.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Balance godoc
// @Summary Баланс токенов
// @Tags tokens
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.TokenBalance}
// @Router /api/v1/tokens/balance [get]
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tokens.Balance"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), accountID)
	if err != nil {
		log.Error("failed to get balance", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(balance))
}

// History godoc
// @Summary История списаний
// @Tags tokens
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Количество записей" default(50)
// @Success 200 {object} response.Response{data=[]models.TokenUsage}
// @Router /api/v1/tokens/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tokens.History"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	limit, err := request.QueryInt(r, "limit", 0)
	if err != nil {
		request.BadQuery(w, r, log, "limit", err)
		return
	}

	history, err := h.service.UsageHistory(r.Context(), accountID, limit)
	if err != nil {
		log.Error("failed to get token history", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(history))
}
