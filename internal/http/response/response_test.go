package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/cortex/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "not found",
			err:      fmt.Errorf("generation.Status: %w", models.ErrGenerationNotFound),
			wantCode: http.StatusNotFound,
			wantMsg:  "generation request not found",
		},
		{
			name:     "conflict",
			err:      fmt.Errorf("subscription.Subscribe: %w", models.ErrActiveSubscriptionExists),
			wantCode: http.StatusConflict,
			wantMsg:  "conflict: account already has an active subscription",
		},
		{
			name:     "insufficient tokens",
			err:      fmt.Errorf("generation.Create: %w", models.ErrInsufficientTokens),
			wantCode: http.StatusPaymentRequired,
			wantMsg:  "insufficient tokens",
		},
		{
			name:     "invalid input",
			err:      fmt.Errorf("generation.Create: %w", models.ErrInvalidStyle),
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid input: invalid style",
		},
		{
			name:     "unauthorized",
			err:      models.ErrInvalidCredentials,
			wantCode: http.StatusUnauthorized,
			wantMsg:  "unauthorized: incorrect email or password",
		},
		{
			name:     "forbidden",
			err:      models.ErrAccountInactive,
			wantCode: http.StatusForbidden,
			wantMsg:  "forbidden: account is inactive",
		},
		{
			name:     "internal error is hidden",
			err:      errors.New("pq: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := FromError(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, models.ErrPlanNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var got ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "plan not found", got.Error)
}

func TestValidationError(t *testing.T) {
	type request struct {
		Email  string `validate:"required,email"`
		Code   string `validate:"required,len=6,numeric"`
		PlanID int64  `validate:"required,gt=0"`
	}

	err := validator.New().Struct(request{Email: "not-an-email", Code: "12"})
	require.Error(t, err)

	got := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, got.Status)
	assert.Contains(t, got.Error, "field Email must be a valid email")
	assert.Contains(t, got.Error, "field Code must be 6 characters long")
	assert.Contains(t, got.Error, "field PlanID is a required field")
}
