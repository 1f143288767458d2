package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/cortex/internal/models"
)

// CreatePayment добавляет запись об оплате и возвращает её ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentTransaction) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_transactions (account_id, subscription_id, amount, payment_method, status)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		p.AccountID, p.SubscriptionID, p.Amount, p.PaymentMethod, p.Status).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPayments возвращает платежи аккаунта, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, accountID int64) ([]models.PaymentTransaction, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_id, subscription_id, amount, payment_method, status, created_at
			  FROM payment_transactions
			  WHERE account_id = $1
			  ORDER BY created_at DESC, id DESC`
	rows, err := s.conn(ctx).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.PaymentTransaction, 0)
	for rows.Next() {
		var p models.PaymentTransaction
		if err = rows.Scan(&p.ID, &p.AccountID, &p.SubscriptionID, &p.Amount,
			&p.PaymentMethod, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
