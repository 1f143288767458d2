package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/magabrotheeeer/cortex/internal/lib/password"
	"github.com/magabrotheeeer/cortex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *RepoMock) UpdateUsername(ctx context.Context, accountID int64, username string) error {
	return m.Called(ctx, accountID, username).Error(0)
}

func (m *RepoMock) UpdatePasswordHash(ctx context.Context, accountID int64, passwordHash string) error {
	return m.Called(ctx, accountID, passwordHash).Error(0)
}

func (m *RepoMock) UpdateAvatarURL(ctx context.Context, accountID int64, avatarURL string) error {
	return m.Called(ctx, accountID, avatarURL).Error(0)
}

func (m *RepoMock) DeactivateAccount(ctx context.Context, accountID int64) error {
	return m.Called(ctx, accountID).Error(0)
}

type AvatarMock struct {
	mock.Mock
}

func (m *AvatarMock) UploadAvatar(ctx context.Context, accountID int64, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, accountID, data, contentType)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestService_UpdateProfile(t *testing.T) {
	t.Run("updates username", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("UpdateUsername", mock.Anything, int64(1), "painter").Return(nil).Once()
		repo.On("GetAccount", mock.Anything, int64(1)).Return(&models.Account{ID: 1, Username: strPtr("painter")}, nil).Once()

		got, err := New(repo, new(AvatarMock), 0, newNoopLogger()).
			UpdateProfile(context.Background(), 1, models.UpdateProfileRequest{Username: strPtr("  painter ")})
		require.NoError(t, err)
		assert.Equal(t, "painter", *got.Username)
		repo.AssertExpectations(t)
	})

	t.Run("empty request returns profile", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetAccount", mock.Anything, int64(1)).Return(&models.Account{ID: 1, TokenBalance: 25}, nil).Once()

		got, err := New(repo, new(AvatarMock), 0, newNoopLogger()).
			UpdateProfile(context.Background(), 1, models.UpdateProfileRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(25), got.TokenBalance)
		repo.AssertNotCalled(t, "UpdateUsername", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid username", func(t *testing.T) {
		_, err := New(new(RepoMock), new(AvatarMock), 0, newNoopLogger()).
			UpdateProfile(context.Background(), 1, models.UpdateProfileRequest{Username: strPtr("x")})
		assert.ErrorIs(t, err, models.ErrInvalidUsername)
	})
}

func TestService_ChangePassword(t *testing.T) {
	hash, err := password.GetHash("old-password")
	require.NoError(t, err)

	tests := []struct {
		name        string
		oldPassword string
		newPassword string
		wantErr     error
	}{
		{name: "changed", oldPassword: "old-password", newPassword: "new-password"},
		{name: "wrong old password", oldPassword: "nope-nope", newPassword: "new-password", wantErr: models.ErrIncorrectPassword},
		{name: "weak new password", oldPassword: "old-password", newPassword: "short", wantErr: models.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("GetAccount", mock.Anything, int64(1)).Return(&models.Account{ID: 1, PasswordHash: hash}, nil).Once()
			if tt.wantErr == nil {
				repo.On("UpdatePasswordHash", mock.Anything, int64(1), mock.MatchedBy(func(h string) bool {
					return password.CompareHash(h, tt.newPassword) == nil
				})).Return(nil).Once()
			}

			err := New(repo, new(AvatarMock), 0, newNoopLogger()).ChangePassword(context.Background(), 1, tt.oldPassword, tt.newPassword)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_UploadAvatar(t *testing.T) {
	data := []byte("png-bytes")

	tests := []struct {
		name        string
		contentType string
		data        []byte
		setupMocks  func(r *RepoMock, a *AvatarMock)
		want        string
		wantErr     error
	}{
		{
			name:        "uploaded",
			contentType: "image/png",
			data:        data,
			setupMocks: func(r *RepoMock, a *AvatarMock) {
				a.On("UploadAvatar", mock.Anything, int64(1), data, "image/png").Return("https://cdn/avatars/1/a.png", nil).Once()
				r.On("UpdateAvatarURL", mock.Anything, int64(1), "https://cdn/avatars/1/a.png").Return(nil).Once()
			},
			want: "https://cdn/avatars/1/a.png",
		},
		{
			name:        "not an image",
			contentType: "application/pdf",
			data:        data,
			setupMocks:  func(_ *RepoMock, _ *AvatarMock) {},
			wantErr:     models.ErrUnsupportedFileType,
		},
		{
			name:        "too large",
			contentType: "image/jpeg",
			data:        make([]byte, 11),
			setupMocks:  func(_ *RepoMock, _ *AvatarMock) {},
			wantErr:     models.ErrFileTooLarge,
		},
		{
			name:        "storage failure",
			contentType: "image/png",
			data:        data,
			setupMocks: func(_ *RepoMock, a *AvatarMock) {
				a.On("UploadAvatar", mock.Anything, int64(1), data, "image/png").Return("", errors.New("s3 down")).Once()
			},
			wantErr: errors.New("s3 down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			avatars := new(AvatarMock)
			tt.setupMocks(repo, avatars)

			got, err := New(repo, avatars, 10, newNoopLogger()).UploadAvatar(context.Background(), 1, tt.data, tt.contentType)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				repo.AssertNotCalled(t, "UpdateAvatarURL", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
			avatars.AssertExpectations(t)
		})
	}
}

func TestService_Delete(t *testing.T) {
	repo := new(RepoMock)
	repo.On("DeactivateAccount", mock.Anything, int64(1)).Return(nil).Once()
	repo.On("DeactivateAccount", mock.Anything, int64(2)).Return(models.ErrAccountNotFound).Once()
	svc := New(repo, new(AvatarMock), 0, newNoopLogger())

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 2), models.ErrNotFound)
}
