package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/cortex/internal/models"
)

const galleryQuery = `SELECT i.id, i.account_id, i.request_id, i.image_url, i.original_url, i.is_favorite,
			      COALESCE(r.prompt, ''), COALESCE(NULLIF(r.style, ''), 'realistic'), i.created_at
			  FROM generated_images i
			  LEFT JOIN generation_requests r ON r.id = i.request_id`

// CreateImage сохраняет изображение, полученное от бэкенда генерации.
func (s *Storage) CreateImage(ctx context.Context, img models.GeneratedImage) (int64, error) {
	const op = "storage.CreateImage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO generated_images (account_id, request_id, image_url, original_url)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		img.AccountID, img.RequestID, img.ImageURL, img.OriginalURL).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetRequestImage возвращает последнее изображение, привязанное к запросу.
func (s *Storage) GetRequestImage(ctx context.Context, requestID int64) (*models.GeneratedImage, error) {
	const op = "storage.GetRequestImage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := galleryQuery + ` WHERE i.request_id = $1 ORDER BY i.id DESC LIMIT 1`
	img, err := scanImage(s.conn(ctx).QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrImageNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}

// DetachRequestImages обнуляет слабую ссылку изображений на запрос.
func (s *Storage) DetachRequestImages(ctx context.Context, requestID int64) error {
	const op = "storage.DetachRequestImages"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE generated_images SET request_id = NULL WHERE request_id = $1`
	if _, err := s.conn(ctx).ExecContext(ctx, query, requestID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListImages возвращает галерею аккаунта постранично, новые первыми.
func (s *Storage) ListImages(ctx context.Context, accountID int64, limit, offset int) ([]models.GeneratedImage, error) {
	const op = "storage.ListImages"
	query := galleryQuery + ` WHERE i.account_id = $1 ORDER BY i.created_at DESC, i.id DESC LIMIT $2 OFFSET $3`
	return s.queryImages(ctx, op, query, accountID, limit, offset)
}

// ListFavoriteImages возвращает избранные изображения аккаунта.
func (s *Storage) ListFavoriteImages(ctx context.Context, accountID int64) ([]models.GeneratedImage, error) {
	const op = "storage.ListFavoriteImages"
	query := galleryQuery + ` WHERE i.account_id = $1 AND i.is_favorite ORDER BY i.created_at DESC, i.id DESC`
	return s.queryImages(ctx, op, query, accountID)
}

// SearchImages ищет изображения аккаунта по подстроке промпта и стилю.
// Пустые query и style не фильтруют.
func (s *Storage) SearchImages(ctx context.Context, accountID int64, query, style string, limit int) ([]models.GeneratedImage, error) {
	const op = "storage.SearchImages"

	conditions := []string{"i.account_id = $1"}
	args := []any{accountID}
	if query != "" {
		args = append(args, "%"+escapeLike(query)+"%")
		conditions = append(conditions, fmt.Sprintf("r.prompt ILIKE $%d", len(args)))
	}
	if style != "" {
		args = append(args, style)
		conditions = append(conditions, fmt.Sprintf("r.style = $%d", len(args)))
	}
	args = append(args, limit)
	q := galleryQuery + ` WHERE ` + strings.Join(conditions, " AND ") +
		fmt.Sprintf(` ORDER BY i.created_at DESC, i.id DESC LIMIT $%d`, len(args))
	return s.queryImages(ctx, op, q, args...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Storage) queryImages(ctx context.Context, op, query string, args ...any) ([]models.GeneratedImage, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.GeneratedImage, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *img)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanImage(row interface{ Scan(dest ...any) error }) (*models.GeneratedImage, error) {
	var img models.GeneratedImage
	if err := row.Scan(&img.ID, &img.AccountID, &img.RequestID, &img.ImageURL, &img.OriginalURL,
		&img.IsFavorite, &img.Prompt, &img.Style, &img.CreatedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

// SetImageFavorite меняет отметку "избранное" у изображения аккаунта.
func (s *Storage) SetImageFavorite(ctx context.Context, accountID, imageID int64, favorite bool) error {
	const op = "storage.SetImageFavorite"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE generated_images SET is_favorite = $1 WHERE id = $2 AND account_id = $3`
	res, err := s.conn(ctx).ExecContext(ctx, query, favorite, imageID, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrImageNotFound)
	}
	return nil
}

// DeleteImage удаляет изображение аккаунта.
func (s *Storage) DeleteImage(ctx context.Context, accountID, imageID int64) error {
	const op = "storage.DeleteImage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM generated_images WHERE id = $1 AND account_id = $2`, imageID, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrImageNotFound)
	}
	return nil
}

// GetUserStats собирает статистику по завершённым запросам аккаунта.
func (s *Storage) GetUserStats(ctx context.Context, accountID int64) (*models.UserStats, error) {
	const op = "storage.GetUserStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT style, COUNT(*), COALESCE(SUM(tokens_used), 0)
			  FROM generation_requests
			  WHERE account_id = $1 AND status = 'completed'
			  GROUP BY style
			  ORDER BY COUNT(*) DESC, style`
	rows, err := s.conn(ctx).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := &models.UserStats{StyleDistribution: make(map[string]int64)}
	for rows.Next() {
		var (
			style       string
			count, used int64
		)
		if err = rows.Scan(&style, &count, &used); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		stats.TotalGenerations += count
		stats.TotalTokensUsed += used
		if style == "" {
			continue
		}
		if stats.FavoriteStyle == nil {
			favorite := style
			stats.FavoriteStyle = &favorite
		}
		stats.StyleDistribution[style] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
