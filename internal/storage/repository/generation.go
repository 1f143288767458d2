package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/cortex/internal/models"
)

const generationColumns = `id, account_id, request_type, prompt, input_image_url, tokens_used,
			      status, style, resolution, error_message, created_at`

func scanGeneration(row interface{ Scan(dest ...any) error }) (*models.GenerationRequest, error) {
	var g models.GenerationRequest
	if err := row.Scan(&g.ID, &g.AccountID, &g.RequestType, &g.Prompt, &g.InputImageURL, &g.TokensUsed,
		&g.Status, &g.Style, &g.Resolution, &g.ErrorMessage, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGenerationRequest сохраняет запрос на генерацию и возвращает его ID.
func (s *Storage) CreateGenerationRequest(ctx context.Context, req models.GenerationRequest) (int64, error) {
	const op = "storage.CreateGenerationRequest"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO generation_requests (account_id, request_type, prompt, input_image_url,
			      tokens_used, status, style, resolution)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		req.AccountID, req.RequestType, req.Prompt, req.InputImageURL,
		req.TokensUsed, req.Status, req.Style, req.Resolution).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetGenerationRequest возвращает запрос, принадлежащий аккаунту.
func (s *Storage) GetGenerationRequest(ctx context.Context, accountID, requestID int64) (*models.GenerationRequest, error) {
	const op = "storage.GetGenerationRequest"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + generationColumns + `
			  FROM generation_requests
			  WHERE id = $1 AND account_id = $2`
	g, err := scanGeneration(s.conn(ctx).QueryRowContext(ctx, query, requestID, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrGenerationNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// LockGenerationRequest блокирует строку запроса до конца транзакции.
func (s *Storage) LockGenerationRequest(ctx context.Context, requestID int64) (*models.GenerationRequest, error) {
	const op = "storage.LockGenerationRequest"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + generationColumns + ` FROM generation_requests WHERE id = $1 FOR UPDATE`
	g, err := scanGeneration(s.conn(ctx).QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrGenerationNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// SetGenerationStatus меняет статус запроса и, для неудачных, текст ошибки.
func (s *Storage) SetGenerationStatus(ctx context.Context, requestID int64, status string, errorMessage *string) error {
	const op = "storage.SetGenerationStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE generation_requests SET status = $1, error_message = $2 WHERE id = $3`
	res, err := s.conn(ctx).ExecContext(ctx, query, status, errorMessage, requestID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrGenerationNotFound)
	}
	return nil
}

// DeleteGenerationRequest удаляет запрос.
func (s *Storage) DeleteGenerationRequest(ctx context.Context, requestID int64) error {
	const op = "storage.DeleteGenerationRequest"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM generation_requests WHERE id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrGenerationNotFound)
	}
	return nil
}

// ListGenerationHistory возвращает историю запросов аккаунта, новые первыми.
// Для завершённых запросов подставляется ссылка на последнее изображение.
func (s *Storage) ListGenerationHistory(ctx context.Context, accountID int64, limit int) ([]models.GenerationHistoryItem, error) {
	const op = "storage.ListGenerationHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT r.id, r.request_type, r.prompt, r.style, r.status, r.tokens_used,
			      CASE WHEN r.status = 'completed' THEN img.image_url END,
			      r.created_at
			  FROM generation_requests r
			  LEFT JOIN LATERAL (
			      SELECT image_url FROM generated_images
			      WHERE request_id = r.id
			      ORDER BY id DESC
			      LIMIT 1
			  ) img ON TRUE
			  WHERE r.account_id = $1
			  ORDER BY r.created_at DESC, r.id DESC
			  LIMIT $2`
	rows, err := s.conn(ctx).QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.GenerationHistoryItem, 0)
	for rows.Next() {
		var h models.GenerationHistoryItem
		if err = rows.Scan(&h.ID, &h.RequestType, &h.Prompt, &h.Style, &h.Status,
			&h.TokensUsed, &h.ImageURL, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
