// Package gallery реализует HTTP-обработчики галереи изображений пользователя.
package gallery

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

// Service описывает операции галереи.
type Service interface {
	List(ctx context.Context, accountID int64, limit, offset int) ([]models.GeneratedImage, error)
	Favorites(ctx context.Context, accountID int64) ([]models.GeneratedImage, error)
	AddFavorite(ctx context.Context, accountID, imageID int64) error
	RemoveFavorite(ctx context.Context, accountID, imageID int64) error
	DeleteImage(ctx context.Context, accountID, imageID int64) error
	Search(ctx context.Context, accountID int64, query, style string, limit int) ([]models.GeneratedImage, error)
}

// Handler обрабатывает запросы /gallery.
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List godoc
// @Summary Изображения пользователя
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response{data=[]models.GeneratedImage}
// @Router /api/v1/gallery [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.gallery.List")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	limit, err := request.QueryInt(r, "limit", 0)
	if err != nil {
		request.BadQuery(w, r, log, "limit", err)
		return
	}
	offset, err := request.QueryInt(r, "offset", 0)
	if err != nil {
		request.BadQuery(w, r, log, "offset", err)
		return
	}

	images, err := h.service.List(r.Context(), accountID, limit, offset)
	if err != nil {
		log.Error("failed to list images", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(images))
}

// Favorites godoc
// @Summary Избранные изображения
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.GeneratedImage}
// @Router /api/v1/gallery/favorites [get]
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.gallery.Favorites")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}

	images, err := h.service.Favorites(r.Context(), accountID)
	if err != nil {
		log.Error("failed to list favorites", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(images))
}

// AddFavorite godoc
// @Summary Добавить в избранное
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID изображения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/gallery/{id}/favorite [post]
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, "handlers.gallery.AddFavorite", true)
}

// RemoveFavorite godoc
// @Summary Убрать из избранного
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID изображения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/gallery/{id}/favorite [delete]
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, "handlers.gallery.RemoveFavorite", false)
}

func (h *Handler) setFavorite(w http.ResponseWriter, r *http.Request, op string, favorite bool) {
	log := h.logger(r, op)

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	imageID, ok := request.URLParamID(w, r, log, "id")
	if !ok {
		return
	}

	var err error
	message := "Added to favorites"
	if favorite {
		err = h.service.AddFavorite(r.Context(), accountID, imageID)
	} else {
		err = h.service.RemoveFavorite(r.Context(), accountID, imageID)
		message = "Removed from favorites"
	}
	if err != nil {
		log.Warn("failed to update favorite", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": message,
	}))
}

// DeleteImage godoc
// @Summary Удаление изображения
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID изображения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/gallery/{id} [delete]
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.gallery.DeleteImage")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	imageID, ok := request.URLParamID(w, r, log, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteImage(r.Context(), accountID, imageID); err != nil {
		log.Warn("failed to delete image", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "Image deleted successfully",
	}))
}

// Search godoc
// @Summary Поиск по промпту
// @Tags gallery
// @Produce json
// @Security BearerAuth
// @Param query query string false "Подстрока промпта"
// @Param style query string false "Стиль"
// @Param limit query int false "Количество записей" default(50)
// @Success 200 {object} response.Response{data=[]models.GeneratedImage}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/gallery/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.gallery.Search")

	accountID, ok := request.AccountID(w, r, log)
	if !ok {
		return
	}
	limit, err := request.QueryInt(r, "limit", 0)
	if err != nil {
		request.BadQuery(w, r, log, "limit", err)
		return
	}
	q := r.URL.Query()

	images, err := h.service.Search(r.Context(), accountID, q.Get("query"), q.Get("style"), limit)
	if err != nil {
		log.Warn("failed to search images", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(images))
}
