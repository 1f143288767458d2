package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cortex/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, accountID int64, in models.GenerationCreateRequest) (*models.GenerationCreated, error) {
	args := m.Called(ctx, accountID, in)
	c, _ := args.Get(0).(*models.GenerationCreated)
	return c, args.Error(1)
}

func (m *ServiceMock) Status(ctx context.Context, accountID, requestID int64) (*models.GenerationStatus, error) {
	args := m.Called(ctx, accountID, requestID)
	s, _ := args.Get(0).(*models.GenerationStatus)
	return s, args.Error(1)
}

func (m *ServiceMock) Delete(ctx context.Context, accountID, requestID int64) (int64, error) {
	args := m.Called(ctx, accountID, requestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ServiceMock) History(ctx context.Context, accountID int64, limit int) ([]models.GenerationHistoryItem, error) {
	args := m.Called(ctx, accountID, limit)
	items, _ := args.Get(0).([]models.GenerationHistoryItem)
	return items, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRequest(method string, body []byte, accountID int64, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, "/", bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middlewarectx.WithAccountID(ctx, accountID))
}

func TestHandler_Create(t *testing.T) {
	valid := models.GenerationCreateRequest{Prompt: "a red fox in snow", Style: "anime"}

	tests := []struct {
		name           string
		body           any
		created        *models.GenerationCreated
		mockErr        error
		callService    bool
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "created",
			body:           valid,
			created:        &models.GenerationCreated{RequestID: 11, TokensUsed: 350, Status: models.GenerationProcessing},
			callService:    true,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "not enough tokens",
			body:           valid,
			mockErr:        models.ErrInsufficientTokens,
			callService:    true,
			wantStatusCode: http.StatusPaymentRequired,
			wantError:      models.ErrInsufficientTokens.Error(),
		},
		{
			name:           "unknown style",
			body:           models.GenerationCreateRequest{Prompt: "a red fox", Style: "pixel"},
			mockErr:        models.ErrInvalidStyle,
			callService:    true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      models.ErrInvalidStyle.Error(),
		},
		{
			name:           "missing prompt",
			body:           models.GenerationCreateRequest{Style: "anime"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Prompt is a required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callService {
				svc.On("Create", mock.Anything, int64(3), tt.body).Return(tt.created, tt.mockErr).Once()
			}
			raw, err := json.Marshal(tt.body)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).Create(rec, newRequest(http.MethodPost, raw, 3, nil))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data := got["data"].(map[string]any)
				assert.Equal(t, float64(11), data["request_id"])
				assert.Equal(t, float64(350), data["tokens_used"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Status(t *testing.T) {
	t.Run("bad id", func(t *testing.T) {
		svc := new(ServiceMock)
		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc).Status(rec, newRequest(http.MethodGet, nil, 3, map[string]string{"id": "abc"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("foreign request is not found", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Status", mock.Anything, int64(3), int64(42)).Return(nil, models.ErrGenerationNotFound).Once()

		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc).Status(rec, newRequest(http.MethodGet, nil, 3, map[string]string{"id": "42"}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestHandler_Delete(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Delete", mock.Anything, int64(3), int64(42)).Return(int64(100), nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).Delete(rec, newRequest(http.MethodDelete, nil, 3, map[string]string{"id": "42"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, float64(100), got["data"].(map[string]any)["tokens_refunded"])
	svc.AssertExpectations(t)
}

func TestHandler_History(t *testing.T) {
	t.Run("default limit is delegated to service", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("History", mock.Anything, int64(3), 0).Return([]models.GenerationHistoryItem{{ID: 1}}, nil).Once()

		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc).History(rec, newRequest(http.MethodGet, nil, 3, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("non numeric limit", func(t *testing.T) {
		svc := new(ServiceMock)
		req := newRequest(http.MethodGet, nil, 3, nil)
		req.URL.RawQuery = "limit=ten"

		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc).History(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
