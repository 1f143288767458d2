// Package auth реализует регистрацию, подтверждение почты, вход по паролю,
// обновление пары JWT и восстановление пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/cortex/internal/lib/jwt"
	"github.com/magabrotheeeer/cortex/internal/lib/password"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Сроки действия одноразовых кодов.
const (
	VerificationCodeTTL = 24 * time.Hour
	ResetTokenTTL       = time.Hour
)

// AccountRepository описывает контракт для работы с аккаунтами в базе данных.
type AccountRepository interface {
	// CreateAccount сохраняет новый аккаунт и возвращает его ID.
	CreateAccount(ctx context.Context, account models.Account) (int64, error)
	// GetAccountByEmail возвращает аккаунт по почте или ErrAccountNotFound.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetAccount возвращает аккаунт по ID или ErrAccountNotFound.
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
	// VerifyEmail подтверждает почту по действующему коду.
	VerifyEmail(ctx context.Context, code string, now time.Time) (bool, error)
	// SetResetToken сохраняет токен сброса пароля.
	SetResetToken(ctx context.Context, accountID int64, token string, expires time.Time) error
	// ResetPassword меняет пароль по действующему токену сброса.
	ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error)
}

// Notifier ставит письмо в очередь уведомлений.
type Notifier interface {
	Notify(ctx context.Context, msg models.EmailMessage)
}

// Service отвечает за регистрацию, вход и восстановление доступа.
type Service struct {
	accounts AccountRepository
	jwtMaker jwt.Maker
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(accounts AccountRepository, jwtMaker jwt.Maker, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		jwtMaker: jwtMaker,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail приводит почту к виду, в котором она хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername проверяет и нормализует имя пользователя.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if n := len([]rune(username)); n < 2 || n > 100 {
		return "", models.ErrInvalidUsername
	}
	return username, nil
}

// Register создает аккаунт с нулевым балансом и отправляет код подтверждения почты.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Profile, error) {
	const op = "auth.Register"

	if !password.Acceptable(req.Password) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrWeakPassword)
	}
	account := models.Account{
		Email:    NormalizeEmail(req.Email),
		IsActive: true,
	}
	if strings.TrimSpace(req.Username) != "" {
		username, err := ValidateUsername(req.Username)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		account.Username = &username
	}

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account.PasswordHash = hashed

	code, err := VerificationCode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expires := s.now().Add(VerificationCodeTTL)
	account.VerificationCode = &code
	account.VerificationCodeExpires = &expires
	account.CreatedAt = s.now()

	id, err := s.accounts.CreateAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account.ID = id

	s.notifier.Notify(ctx, models.EmailMessage{
		Kind:     models.EmailVerification,
		To:       account.Email,
		Username: models.DisplayName(account.Username, account.Email),
		Code:     code,
	})

	profile := account.ToProfile()
	return &profile, nil
}

// VerifyEmail подтверждает почту по шестизначному коду.
func (s *Service) VerifyEmail(ctx context.Context, code string) error {
	const op = "auth.VerifyEmail"

	ok, err := s.accounts.VerifyEmail(ctx, code, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidCode)
	}
	return nil
}

// Login проверяет пароль и выдаёт пару токенов.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*models.TokenPair, error) {
	const op = "auth.Login"

	account, err := s.accounts.GetAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, models.ErrAccountNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(account.PasswordHash, rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountInactive)
	}

	pair, err := s.issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Refresh выдаёт новую пару токенов по действующему refresh токену.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "auth.Refresh"

	claims, err := s.jwtMaker.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.RefreshToken {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}
	account, err := s.accounts.GetAccount(ctx, claims.AccountID)
	if errors.Is(err, models.ErrAccountNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountInactive)
	}

	pair, err := s.issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

func (s *Service) issue(accountID int64) (*models.TokenPair, error) {
	access, err := s.jwtMaker.GenerateToken(accountID, jwt.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwtMaker.GenerateToken(accountID, jwt.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// ForgotPassword отправляет ссылку для сброса пароля. Для неизвестной или
// отключённой почты ничего не делает и ошибку не возвращает.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	account, err := s.accounts.GetAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, models.ErrAccountNotFound) {
		s.log.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !account.IsActive {
		return nil
	}

	token, err := ResetToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.accounts.SetResetToken(ctx, account.ID, token, s.now().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.notifier.Notify(ctx, models.EmailMessage{
		Kind:     models.EmailPasswordReset,
		To:       account.Email,
		Username: models.DisplayName(account.Username, account.Email),
		Token:    token,
	})
	return nil
}

// ResetPassword устанавливает новый пароль по токену из письма.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "auth.ResetPassword"

	if !password.Acceptable(newPassword) {
		return fmt.Errorf("%s: %w", op, models.ErrWeakPassword)
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := s.accounts.ResetPassword(ctx, token, hashed, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidResetToken)
	}
	s.log.Info("password reset completed")
	return nil
}

