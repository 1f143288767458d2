package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cortex/internal/lib/jwt"
	"github.com/magabrotheeeer/cortex/internal/models"
)

type ParserMock struct {
	mock.Mock
}

func (m *ParserMock) ParseToken(token string) (*jwt.CustomClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

type AccountGetterMock struct {
	mock.Mock
}

func (m *AccountGetterMock) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		claims         *jwt.CustomClaims
		parseErr       error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "token validation error",
			authHeader:     "Bearer token",
			parseErr:       errors.New("token is expired"),
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "refresh token is not accepted",
			authHeader:     "Bearer token",
			claims:         &jwt.CustomClaims{AccountID: 7, TokenType: jwt.RefreshToken},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid access token",
			authHeader:     "Bearer token",
			claims:         &jwt.CustomClaims{AccountID: 7, TokenType: jwt.AccessToken},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(ParserMock)
			if tt.claims != nil || tt.parseErr != nil {
				parser.On("ParseToken", "token").Return(tt.claims, tt.parseErr).Once()
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.AccountIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, int64(7), id)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middlewarectx.JWTMiddleware(parser, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			parser.AssertExpectations(t)
		})
	}
}

func TestActiveAccountMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		withAccount    bool
		account        *models.Account
		err            error
		wantStatusCode int
	}{
		{name: "no account in context", wantStatusCode: http.StatusUnauthorized},
		{name: "active account", withAccount: true, account: &models.Account{ID: 7, IsActive: true}, wantStatusCode: http.StatusOK},
		{name: "inactive account", withAccount: true, account: &models.Account{ID: 7}, wantStatusCode: http.StatusForbidden},
		{name: "deleted account", withAccount: true, err: models.ErrAccountNotFound, wantStatusCode: http.StatusUnauthorized},
		{name: "storage error", withAccount: true, err: errors.New("db down"), wantStatusCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(AccountGetterMock)
			if tt.withAccount {
				accounts.On("GetAccount", mock.Anything, int64(7)).Return(tt.account, tt.err).Once()
			}
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.withAccount {
				req = req.WithContext(middlewarectx.WithAccountID(req.Context(), 7))
			}
			rec := httptest.NewRecorder()

			middlewarectx.ActiveAccountMiddleware(newNoopLogger(), accounts)(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatusCode, rec.Code)
			accounts.AssertExpectations(t)
		})
	}
}
