// Package subscription реализует HTTP-обработчики тарифов и подписок:
// каталог тарифов, текущую подписку, оформление, отмену и историю платежей.
package subscription

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

// Service описывает бизнес-логику подписок.
type Service interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	Current(ctx context.Context, accountID int64) (*models.SubscriptionView, error)
	Subscribe(ctx context.Context, accountID, planID int64, paymentMethod string) (*models.SubscribeResult, error)
	Cancel(ctx context.Context, accountID int64, reason string) (*models.CancelResult, error)
	Payments(ctx context.Context, accountID int64) ([]models.PaymentTransaction, error)
}

// Handler обрабатывает запросы /subscriptions.
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

// Plans godoc
// @Summary Список тарифов
// @Description Тарифы упорядочены по цене
// @Tags subscriptions
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Plan}
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/subscriptions/plans [get]
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Plans")

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(plans))
}

// Current godoc
// @Summary Текущая подписка
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.SubscriptionView}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/subscriptions/current [get]
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Current")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	view, err := h.service.Current(r.Context(), accountID)
	if err != nil {
		log.Info("no current subscription", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(view))
}

// Subscribe godoc
// @Summary Оформление подписки
// @Description Создает подписку, запись об оплате и заменяет баланс токенов объемом тарифа
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.SubscribeRequest true "Тариф и способ оплаты"
// @Success 200 {object} response.Response{data=models.SubscribeResult}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/subscriptions/subscribe [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Subscribe")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	var req models.SubscribeRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	res, err := h.service.Subscribe(r.Context(), accountID, req.PlanID, req.PaymentMethod)
	if err != nil {
		log.Warn("subscribe failed", slog.Int64("plan_id", req.PlanID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("subscription created", slog.Int64("subscription_id", res.SubscriptionID))
	render.JSON(w, r, response.OKWithData(res))
}

// Cancel godoc
// @Summary Отмена подписки
// @Description Отключает автопродление, доступ сохраняется до конца оплаченного периода
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CancelRequest false "Причина отмены"
// @Success 200 {object} response.Response{data=models.CancelResult}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/subscriptions/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Cancel")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	var req models.CancelRequest
	if r.ContentLength > 0 {
		if !request.DecodeJSON(w, r, log, h.validate, &req) {
			return
		}
	}

	res, err := h.service.Cancel(r.Context(), accountID, req.Reason)
	if err != nil {
		log.Warn("cancel failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}

// Payments godoc
// @Summary История платежей
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.PaymentTransaction}
// @Router /api/v1/subscriptions/payments [get]
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Payments")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	payments, err := h.service.Payments(r.Context(), accountID)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(payments))
}
