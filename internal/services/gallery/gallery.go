// Package gallery отдаёт изображения пользователя, избранное, поиск и статистику.
package gallery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/cortex/internal/models"
)

const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultSearchLimit = 50
)

// Repository описывает операции хранилища над галереей.
type Repository interface {
	ListImages(ctx context.Context, accountID int64, limit, offset int) ([]models.GeneratedImage, error)
	ListFavoriteImages(ctx context.Context, accountID int64) ([]models.GeneratedImage, error)
	SearchImages(ctx context.Context, accountID int64, query, style string, limit int) ([]models.GeneratedImage, error)
	SetImageFavorite(ctx context.Context, accountID, imageID int64, favorite bool) error
	DeleteImage(ctx context.Context, accountID, imageID int64) error
	GetUserStats(ctx context.Context, accountID int64) (*models.UserStats, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) List(ctx context.Context, accountID int64, limit, offset int) ([]models.GeneratedImage, error) {
	const op = "gallery.List"
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	images, err := s.repo.ListImages(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return images, nil
}

func (s *Service) Favorites(ctx context.Context, accountID int64) ([]models.GeneratedImage, error) {
	const op = "gallery.Favorites"

	images, err := s.repo.ListFavoriteImages(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return images, nil
}

func (s *Service) AddFavorite(ctx context.Context, accountID, imageID int64) error {
	return s.setFavorite(ctx, "gallery.AddFavorite", accountID, imageID, true)
}

func (s *Service) RemoveFavorite(ctx context.Context, accountID, imageID int64) error {
	return s.setFavorite(ctx, "gallery.RemoveFavorite", accountID, imageID, false)
}

func (s *Service) setFavorite(ctx context.Context, op string, accountID, imageID int64, favorite bool) error {
	if err := s.repo.SetImageFavorite(ctx, accountID, imageID, favorite); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteImage удаляет изображение из галереи. Запрос на генерацию не затрагивается.
func (s *Service) DeleteImage(ctx context.Context, accountID, imageID int64) error {
	const op = "gallery.DeleteImage"

	if err := s.repo.DeleteImage(ctx, accountID, imageID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("image deleted", slog.Int64("account_id", accountID), slog.Int64("image_id", imageID))
	return nil
}

// Search ищет по подстроке промпта без учёта регистра и по стилю.
func (s *Service) Search(ctx context.Context, accountID int64, query, style string, limit int) ([]models.GeneratedImage, error) {
	const op = "gallery.Search"
	if style != "" {
		if _, ok := models.Styles[style]; !ok {
			return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidStyle)
		}
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultSearchLimit
	}

	images, err := s.repo.SearchImages(ctx, accountID, query, style, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return images, nil
}

// UserStats возвращает статистику по завершённым генерациям.
func (s *Service) UserStats(ctx context.Context, accountID int64) (*models.UserStats, error) {
	const op = "gallery.UserStats"

	stats, err := s.repo.GetUserStats(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
