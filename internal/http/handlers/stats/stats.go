// Package stats реализует HTTP-обработчик статистики пользователя.
package stats

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

// Service описывает получение статистики.
type Service interface {
	UserStats(ctx context.Context, accountID int64) (*models.UserStats, error)
}

// Handler обрабатывает /stats/user.
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

// ServeHTTP godoc
// @Summary Статистика пользователя
// @Description Число генераций, потраченные токены и распределение по стилям
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UserStats}
// @Router /api/v1/stats/user [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats.User"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	stats, err := h.service.UserStats(r.Context(), accountID)
	if err != nil {
		log.Error("failed to get user stats", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}
