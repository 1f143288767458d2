package gallery

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cortex/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) List(ctx context.Context, accountID int64, limit, offset int) ([]models.GeneratedImage, error) {
	args := m.Called(ctx, accountID, limit, offset)
	images, _ := args.Get(0).([]models.GeneratedImage)
	return images, args.Error(1)
}

func (m *ServiceMock) Favorites(ctx context.Context, accountID int64) ([]models.GeneratedImage, error) {
	args := m.Called(ctx, accountID)
	images, _ := args.Get(0).([]models.GeneratedImage)
	return images, args.Error(1)
}

func (m *ServiceMock) AddFavorite(ctx context.Context, accountID, imageID int64) error {
	return m.Called(ctx, accountID, imageID).Error(0)
}

func (m *ServiceMock) RemoveFavorite(ctx context.Context, accountID, imageID int64) error {
	return m.Called(ctx, accountID, imageID).Error(0)
}

func (m *ServiceMock) DeleteImage(ctx context.Context, accountID, imageID int64) error {
	return m.Called(ctx, accountID, imageID).Error(0)
}

func (m *ServiceMock) Search(ctx context.Context, accountID int64, query, style string, limit int) ([]models.GeneratedImage, error) {
	args := m.Called(ctx, accountID, query, style, limit)
	images, _ := args.Get(0).([]models.GeneratedImage)
	return images, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// router повторяет маршруты галереи, чтобы параметры пути разбирались chi.
func router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middlewarectx.WithAccountID(r.Context(), 4)))
		})
	})
	r.Get("/gallery", h.List)
	r.Get("/gallery/search", h.Search)
	r.Post("/gallery/{id}/favorite", h.AddFavorite)
	r.Delete("/gallery/{id}/favorite", h.RemoveFavorite)
	r.Delete("/gallery/{id}", h.DeleteImage)
	return r
}

func TestHandler_Routes(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		target         string
		setup          func(m *ServiceMock)
		wantStatusCode int
	}{
		{
			name:   "list with paging",
			method: http.MethodGet,
			target: "/gallery?limit=10&offset=20",
			setup: func(m *ServiceMock) {
				m.On("List", mock.Anything, int64(4), 10, 20).Return([]models.GeneratedImage{}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "list with bad offset",
			method:         http.MethodGet,
			target:         "/gallery?offset=x",
			setup:          func(*ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:   "favorite foreign image",
			method: http.MethodPost,
			target: "/gallery/77/favorite",
			setup: func(m *ServiceMock) {
				m.On("AddFavorite", mock.Anything, int64(4), int64(77)).Return(models.ErrImageNotFound).Once()
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:   "unfavorite",
			method: http.MethodDelete,
			target: "/gallery/77/favorite",
			setup: func(m *ServiceMock) {
				m.On("RemoveFavorite", mock.Anything, int64(4), int64(77)).Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "delete image",
			method: http.MethodDelete,
			target: "/gallery/77",
			setup: func(m *ServiceMock) {
				m.On("DeleteImage", mock.Anything, int64(4), int64(77)).Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:   "search with invalid style",
			method: http.MethodGet,
			target: "/gallery/search?query=fox&style=pixel",
			setup: func(m *ServiceMock) {
				m.On("Search", mock.Anything, int64(4), "fox", "pixel", 0).Return(nil, models.ErrInvalidStyle).Once()
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setup(svc)

			rec := httptest.NewRecorder()
			router(New(newNoopLogger(), svc)).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}
