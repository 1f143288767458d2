// Package account управляет профилем пользователя: имя, пароль, аватар и отключение аккаунта.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/cortex/internal/lib/password"
	"github.com/magabrotheeeer/cortex/internal/models"
	"github.com/magabrotheeeer/cortex/internal/services/auth"
)

// Repository описывает операции над аккаунтом.
type Repository interface {
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
	UpdateUsername(ctx context.Context, accountID int64, username string) error
	UpdatePasswordHash(ctx context.Context, accountID int64, passwordHash string) error
	UpdateAvatarURL(ctx context.Context, accountID int64, avatarURL string) error
	DeactivateAccount(ctx context.Context, accountID int64) error
}

// AvatarStorage сохраняет файл аватара и возвращает его публичный URL.
type AvatarStorage interface {
	UploadAvatar(ctx context.Context, accountID int64, data []byte, contentType string) (string, error)
}

type Service struct {
	repo          Repository
	avatars       AvatarStorage
	maxAvatarSize int64
	log           *slog.Logger
}

func New(repo Repository, avatars AvatarStorage, maxAvatarSize int64, log *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		avatars:       avatars,
		maxAvatarSize: maxAvatarSize,
		log:           log,
	}
}

func (s *Service) Profile(ctx context.Context, accountID int64) (*models.Profile, error) {
	const op = "account.Profile"

	a, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profile := a.ToProfile()
	return &profile, nil
}

// UpdateProfile меняет только переданные поля и возвращает обновлённый профиль.
func (s *Service) UpdateProfile(ctx context.Context, accountID int64, req models.UpdateProfileRequest) (*models.Profile, error) {
	const op = "account.UpdateProfile"

	if req.Username != nil {
		username, err := auth.ValidateUsername(*req.Username)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.repo.UpdateUsername(ctx, accountID, username); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return s.Profile(ctx, accountID)
}

// ChangePassword проверяет текущий пароль и устанавливает новый.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	const op = "account.ChangePassword"

	a, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(a.PasswordHash, oldPassword); err != nil {
		return fmt.Errorf("%s: %w", op, models.ErrIncorrectPassword)
	}
	if !password.Acceptable(newPassword) {
		return fmt.Errorf("%s: %w", op, models.ErrWeakPassword)
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, accountID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UploadAvatar принимает только изображения не больше допустимого размера.
func (s *Service) UploadAvatar(ctx context.Context, accountID int64, data []byte, contentType string) (string, error) {
	const op = "account.UploadAvatar"

	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s: %w", op, models.ErrUnsupportedFileType)
	}
	if s.maxAvatarSize > 0 && int64(len(data)) > s.maxAvatarSize {
		return "", fmt.Errorf("%s: %w", op, models.ErrFileTooLarge)
	}

	url, err := s.avatars.UploadAvatar(ctx, accountID, data, contentType)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdateAvatarURL(ctx, accountID, url); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

// Delete отключает аккаунт. Данные сохраняются, вход становится невозможен.
func (s *Service) Delete(ctx context.Context, accountID int64) error {
	const op = "account.Delete"

	if err := s.repo.DeactivateAccount(ctx, accountID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account deactivated", slog.Int64("account_id", accountID))
	return nil
}
