package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	customjwt "github.com/magabrotheeeer/cortex/internal/lib/jwt"
	"github.com/magabrotheeeer/cortex/internal/lib/password"
	"github.com/magabrotheeeer/cortex/internal/models"
	"github.com/magabrotheeeer/cortex/internal/services/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Мок для AccountRepository
type AccountRepoMock struct {
	mock.Mock
}

func (m *AccountRepoMock) CreateAccount(ctx context.Context, account models.Account) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AccountRepoMock) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *AccountRepoMock) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *AccountRepoMock) VerifyEmail(ctx context.Context, code string, now time.Time) (bool, error) {
	args := m.Called(ctx, code, now)
	return args.Bool(0), args.Error(1)
}

func (m *AccountRepoMock) SetResetToken(ctx context.Context, accountID int64, token string, expires time.Time) error {
	args := m.Called(ctx, accountID, token, expires)
	return args.Error(0)
}

func (m *AccountRepoMock) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	args := m.Called(ctx, token, passwordHash, now)
	return args.Bool(0), args.Error(1)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(accountID int64, tokenType string) (string, error) {
	args := m.Called(accountID, tokenType)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(ctx context.Context, msg models.EmailMessage) {
	m.Called(ctx, msg)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var codeRe = regexp.MustCompile(`^\d{6}$`)

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		req        models.RegisterRequest
		setupMocks func(r *AccountRepoMock, n *NotifierMock)
		wantErr    error
	}{
		{
			name: "successful registration",
			req:  models.RegisterRequest{Email: " User@Example.com ", Password: "password123", Username: "artist"},
			setupMocks: func(r *AccountRepoMock, n *NotifierMock) {
				r.On("CreateAccount", mock.Anything, mock.MatchedBy(func(a models.Account) bool {
					return a.Email == "user@example.com" &&
						a.Username != nil && *a.Username == "artist" &&
						a.PasswordHash != "" && a.PasswordHash != "password123" &&
						a.TokenBalance == 0 && a.IsActive &&
						a.VerificationCode != nil && codeRe.MatchString(*a.VerificationCode) &&
						a.VerificationCodeExpires != nil &&
						a.VerificationCodeExpires.Sub(time.Now()) > 23*time.Hour
				})).Return(int64(42), nil).Once()
				n.On("Notify", mock.Anything, mock.MatchedBy(func(msg models.EmailMessage) bool {
					return msg.Kind == models.EmailVerification && msg.To == "user@example.com" &&
						codeRe.MatchString(msg.Code) && msg.Username == "artist"
				})).Once()
			},
		},
		{
			name: "email taken",
			req:  models.RegisterRequest{Email: "user@example.com", Password: "password123"},
			setupMocks: func(r *AccountRepoMock, _ *NotifierMock) {
				r.On("CreateAccount", mock.Anything, mock.Anything).Return(int64(0), models.ErrEmailTaken).Once()
			},
			wantErr: models.ErrConflict,
		},
		{
			name:       "weak password",
			req:        models.RegisterRequest{Email: "user@example.com", Password: "short"},
			setupMocks: func(_ *AccountRepoMock, _ *NotifierMock) {},
			wantErr:    models.ErrWeakPassword,
		},
		{
			name:       "username too short",
			req:        models.RegisterRequest{Email: "user@example.com", Password: "password123", Username: "a"},
			setupMocks: func(_ *AccountRepoMock, _ *NotifierMock) {},
			wantErr:    models.ErrInvalidUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AccountRepoMock)
			notifier := new(NotifierMock)
			tt.setupMocks(repo, notifier)
			svc := auth.New(repo, new(JwtMakerMock), notifier, newNoopLogger())

			profile, err := svc.Register(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(42), profile.ID)
			assert.Equal(t, int64(0), profile.TokenBalance)
			assert.False(t, profile.EmailVerified)
			repo.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestService_VerifyEmail(t *testing.T) {
	repo := new(AccountRepoMock)
	repo.On("VerifyEmail", mock.Anything, "123456", mock.Anything).Return(true, nil).Once()
	repo.On("VerifyEmail", mock.Anything, "000000", mock.Anything).Return(false, nil).Once()
	svc := auth.New(repo, new(JwtMakerMock), new(NotifierMock), newNoopLogger())

	require.NoError(t, svc.VerifyEmail(context.Background(), "123456"))
	assert.ErrorIs(t, svc.VerifyEmail(context.Background(), "000000"), models.ErrInvalidCode)
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("password123")
	require.NoError(t, err)

	tests := []struct {
		name       string
		password   string
		setupMocks func(r *AccountRepoMock, j *JwtMakerMock)
		wantErr    error
	}{
		{
			name:     "successful login",
			password: "password123",
			setupMocks: func(r *AccountRepoMock, j *JwtMakerMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").
					Return(&models.Account{ID: 1, Email: "user@example.com", PasswordHash: hash, IsActive: true}, nil).Once()
				j.On("GenerateToken", int64(1), customjwt.AccessToken).Return("access", nil).Once()
				j.On("GenerateToken", int64(1), customjwt.RefreshToken).Return("refresh", nil).Once()
			},
		},
		{
			name:     "wrong password",
			password: "wrong-password",
			setupMocks: func(r *AccountRepoMock, _ *JwtMakerMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").
					Return(&models.Account{ID: 1, PasswordHash: hash, IsActive: true}, nil).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			password: "password123",
			setupMocks: func(r *AccountRepoMock, _ *JwtMakerMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").Return(nil, models.ErrAccountNotFound).Once()
			},
			wantErr: models.ErrUnauthorized,
		},
		{
			name:     "inactive account",
			password: "password123",
			setupMocks: func(r *AccountRepoMock, _ *JwtMakerMock) {
				r.On("GetAccountByEmail", mock.Anything, "user@example.com").
					Return(&models.Account{ID: 1, PasswordHash: hash, IsActive: false}, nil).Once()
			},
			wantErr: models.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AccountRepoMock)
			maker := new(JwtMakerMock)
			tt.setupMocks(repo, maker)
			svc := auth.New(repo, maker, new(NotifierMock), newNoopLogger())

			pair, err := svc.Login(context.Background(), "user@example.com", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "bearer"}, pair)
			maker.AssertExpectations(t)
		})
	}
}

func TestService_Refresh(t *testing.T) {
	t.Run("issues new pair", func(t *testing.T) {
		repo := new(AccountRepoMock)
		maker := new(JwtMakerMock)
		maker.On("ParseToken", "refresh-token").Return(&customjwt.CustomClaims{AccountID: 5, TokenType: customjwt.RefreshToken}, nil).Once()
		repo.On("GetAccount", mock.Anything, int64(5)).Return(&models.Account{ID: 5, IsActive: true}, nil).Once()
		maker.On("GenerateToken", int64(5), customjwt.AccessToken).Return("a2", nil).Once()
		maker.On("GenerateToken", int64(5), customjwt.RefreshToken).Return("r2", nil).Once()

		pair, err := auth.New(repo, maker, new(NotifierMock), newNoopLogger()).Refresh(context.Background(), "refresh-token")
		require.NoError(t, err)
		assert.Equal(t, "a2", pair.AccessToken)
		assert.Equal(t, "r2", pair.RefreshToken)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		maker := new(JwtMakerMock)
		maker.On("ParseToken", "access-token").Return(&customjwt.CustomClaims{AccountID: 5, TokenType: customjwt.AccessToken}, nil).Once()

		_, err := auth.New(new(AccountRepoMock), maker, new(NotifierMock), newNoopLogger()).Refresh(context.Background(), "access-token")
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("broken token", func(t *testing.T) {
		maker := new(JwtMakerMock)
		maker.On("ParseToken", "garbage").Return(nil, errors.New("token is malformed")).Once()

		_, err := auth.New(new(AccountRepoMock), maker, new(NotifierMock), newNoopLogger()).Refresh(context.Background(), "garbage")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestService_ForgotPassword(t *testing.T) {
	t.Run("sends reset token", func(t *testing.T) {
		repo := new(AccountRepoMock)
		notifier := new(NotifierMock)
		repo.On("GetAccountByEmail", mock.Anything, "user@example.com").
			Return(&models.Account{ID: 3, Email: "user@example.com", IsActive: true}, nil).Once()
		var token string
		repo.On("SetResetToken", mock.Anything, int64(3), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				token = args.String(2)
				expires := args.Get(3).(time.Time)
				assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)
			}).Return(nil).Once()
		notifier.On("Notify", mock.Anything, mock.MatchedBy(func(msg models.EmailMessage) bool {
			return msg.Kind == models.EmailPasswordReset && msg.Token != ""
		})).Once()

		err := auth.New(repo, new(JwtMakerMock), notifier, newNoopLogger()).ForgotPassword(context.Background(), "user@example.com")
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Za-z0-9]{32}$`, token)
		notifier.AssertExpectations(t)
	})

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		repo := new(AccountRepoMock)
		notifier := new(NotifierMock)
		repo.On("GetAccountByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrAccountNotFound).Once()

		err := auth.New(repo, new(JwtMakerMock), notifier, newNoopLogger()).ForgotPassword(context.Background(), "ghost@example.com")
		require.NoError(t, err)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}

func TestService_ResetPassword(t *testing.T) {
	repo := new(AccountRepoMock)
	repo.On("ResetPassword", mock.Anything, "good-token", mock.AnythingOfType("string"), mock.Anything).Return(true, nil).Once()
	repo.On("ResetPassword", mock.Anything, "stale-token", mock.AnythingOfType("string"), mock.Anything).Return(false, nil).Once()
	svc := auth.New(repo, new(JwtMakerMock), new(NotifierMock), newNoopLogger())

	require.NoError(t, svc.ResetPassword(context.Background(), "good-token", "new-password-1"))
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "stale-token", "new-password-1"), models.ErrInvalidResetToken)
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "good-token", "short"), models.ErrWeakPassword)
}

func TestCodes(t *testing.T) {
	code, err := auth.VerificationCode()
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)

	a, err := auth.ResetToken()
	require.NoError(t, err)
	b, err := auth.ResetToken()
	require.NoError(t, err)
	assert.Len(t, a, auth.ResetTokenLength)
	assert.NotEqual(t, a, b)
}
