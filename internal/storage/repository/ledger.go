package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/cortex/internal/models"
)

// GetTokenBalance возвращает текущий баланс токенов аккаунта.
func (s *Storage) GetTokenBalance(ctx context.Context, accountID int64) (int64, error) {
	const op = "storage.GetTokenBalance"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var balance int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT token_balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrAccountNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// SumCompletedTokens возвращает сумму токенов, потраченных на завершённые запросы.
func (s *Storage) SumCompletedTokens(ctx context.Context, accountID int64) (int64, error) {
	const op = "storage.SumCompletedTokens"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COALESCE(SUM(tokens_used), 0)
			  FROM generation_requests
			  WHERE account_id = $1 AND status = 'completed'`
	var total int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, accountID).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// DeductTokens списывает amount одним условным UPDATE. Возвращает false без
// изменений, если средств недостаточно или аккаунта нет.
func (s *Storage) DeductTokens(ctx context.Context, accountID, amount int64) (bool, error) {
	const op = "storage.DeductTokens"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET token_balance = token_balance - $1
			  WHERE id = $2 AND token_balance >= $1`
	res, err := s.conn(ctx).ExecContext(ctx, query, amount, accountID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// AddTokens атомарно увеличивает баланс. Возвращает false, если аккаунта нет.
func (s *Storage) AddTokens(ctx context.Context, accountID, amount int64) (bool, error) {
	const op = "storage.AddTokens"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET token_balance = token_balance + $1 WHERE id = $2`
	res, err := s.conn(ctx).ExecContext(ctx, query, amount, accountID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	ok, err := affected(res)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SetTokenBalance заменяет баланс аккаунта.
func (s *Storage) SetTokenBalance(ctx context.Context, accountID, balance int64) error {
	return s.updateAccountField(ctx, "storage.SetTokenBalance",
		`UPDATE accounts SET token_balance = $1 WHERE id = $2`, balance, accountID)
}

// ListTokenUsage возвращает историю списаний, новые записи первыми.
func (s *Storage) ListTokenUsage(ctx context.Context, accountID int64, limit int) ([]models.TokenUsage, error) {
	const op = "storage.ListTokenUsage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, COALESCE(NULLIF(request_type, ''), 'generation'), tokens_used,
			      prompt, status, created_at
			  FROM generation_requests
			  WHERE account_id = $1 AND tokens_used IS NOT NULL
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2`
	rows, err := s.conn(ctx).QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.TokenUsage, 0)
	for rows.Next() {
		var u models.TokenUsage
		if err = rows.Scan(&u.ID, &u.RequestType, &u.TokensUsed, &u.Prompt, &u.Status, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
