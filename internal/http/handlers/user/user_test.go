package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/cortex/internal/http/middlewarectx"
	"github.com/magabrotheeeer/cortex/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Profile(ctx context.Context, accountID int64) (*models.Profile, error) {
	args := m.Called(ctx, accountID)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *ServiceMock) UpdateProfile(ctx context.Context, accountID int64, req models.UpdateProfileRequest) (*models.Profile, error) {
	args := m.Called(ctx, accountID, req)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *ServiceMock) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	return m.Called(ctx, accountID, oldPassword, newPassword).Error(0)
}

func (m *ServiceMock) UploadAvatar(ctx context.Context, accountID int64, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, accountID, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *ServiceMock) Delete(ctx context.Context, accountID int64) error {
	return m.Called(ctx, accountID).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func withAccount(r *http.Request, id int64) *http.Request {
	return r.WithContext(middlewarectx.WithAccountID(r.Context(), id))
}

func multipartBody(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="avatar.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestHandler_Profile(t *testing.T) {
	t.Run("no account in context", func(t *testing.T) {
		svc := new(ServiceMock)
		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc, 1024).Profile(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Profile", mock.Anything, int64(5)).Return(&models.Profile{ID: 5, Email: "a@b.c", TokenBalance: 700}, nil).Once()

		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc, 1024).Profile(rec, withAccount(httptest.NewRequest(http.MethodGet, "/", nil), 5))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		data := got["data"].(map[string]any)
		assert.Equal(t, float64(700), data["token_balance"])
		svc.AssertExpectations(t)
	})
}

func TestHandler_UploadAvatar(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")

	tests := []struct {
		name           string
		contentType    string
		mockURL        string
		mockErr        error
		wantStatusCode int
	}{
		{name: "image accepted", contentType: "image/png", mockURL: "https://cdn/avatars/5/x.png", wantStatusCode: http.StatusOK},
		{name: "non image rejected", contentType: "text/plain", mockErr: models.ErrUnsupportedFileType, wantStatusCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("UploadAvatar", mock.Anything, int64(5), png, tt.contentType).Return(tt.mockURL, tt.mockErr).Once()

			body, ct := multipartBody(t, tt.contentType, png)
			req := httptest.NewRequest(http.MethodPost, "/", body)
			req.Header.Set("Content-Type", ct)

			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc, 1024).UploadAvatar(rec, withAccount(req, 5))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svc.AssertExpectations(t)
		})
	}

	t.Run("missing file field", func(t *testing.T) {
		svc := new(ServiceMock)
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc, 1024).UploadAvatar(rec, withAccount(req, 5))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "UploadAvatar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandler_ChangePassword(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ChangePassword", mock.Anything, int64(5), "old-password", "new-password").Return(models.ErrIncorrectPassword).Once()

	raw, _ := json.Marshal(models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"})
	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc, 1024).ChangePassword(rec, withAccount(httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader(raw)), 5))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}
