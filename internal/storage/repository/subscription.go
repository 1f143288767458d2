package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/cortex/internal/models"
)

// ListPlans возвращает каталог тарифов, упорядоченный по цене.
func (s *Storage) ListPlans(ctx context.Context) ([]models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, tokens_included, duration_days, description, note
			  FROM subscription_plans
			  ORDER BY price, id`
	rows, err := s.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPlan возвращает тариф по ID.
func (s *Storage) GetPlan(ctx context.Context, planID int64) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, price, tokens_included, duration_days, description, note
			  FROM subscription_plans WHERE id = $1`
	p, err := scanPlan(s.conn(ctx).QueryRowContext(ctx, query, planID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func scanPlan(row interface{ Scan(dest ...any) error }) (*models.Plan, error) {
	var p models.Plan
	var description, note sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.TokensIncluded, &p.DurationDays, &description, &note); err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if note.Valid {
		p.Note = &note.String
	}
	return &p, nil
}

// GetCurrentSubscription возвращает действующую подписку аккаунта: активную
// или отменённую, но ещё не истёкшую. Активная имеет приоритет.
func (s *Storage) GetCurrentSubscription(ctx context.Context, accountID int64, now time.Time) (*models.SubscriptionView, error) {
	const op = "storage.GetCurrentSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.plan_id, p.name, s.status, s.start_date, s.end_date, s.auto_renew,
			      p.tokens_included, a.token_balance
			  FROM subscriptions s
			  JOIN subscription_plans p ON p.id = s.plan_id
			  JOIN accounts a ON a.id = s.account_id
			  WHERE s.account_id = $1
			    AND s.status IN ('active', 'cancelled')
			    AND s.end_date > $2
			  ORDER BY (s.status = 'active') DESC, s.end_date DESC
			  LIMIT 1`
	var v models.SubscriptionView
	err := s.conn(ctx).QueryRowContext(ctx, query, accountID, now).Scan(&v.ID, &v.PlanID, &v.PlanName,
		&v.Status, &v.StartDate, &v.EndDate, &v.AutoRenew, &v.TokensTotal, &v.TokensRemaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}

// ExpireStaleSubscriptions переводит истёкшие активные подписки аккаунта в inactive.
func (s *Storage) ExpireStaleSubscriptions(ctx context.Context, accountID int64, now time.Time) (int64, error) {
	const op = "storage.ExpireStaleSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = 'inactive'
			  WHERE account_id = $1 AND status = 'active' AND end_date <= $2`
	res, err := s.conn(ctx).ExecContext(ctx, query, accountID, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// HasActiveSubscription проверяет наличие активной неистёкшей подписки.
func (s *Storage) HasActiveSubscription(ctx context.Context, accountID int64, now time.Time) (bool, error) {
	const op = "storage.HasActiveSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM subscriptions
			      WHERE account_id = $1 AND status = 'active' AND end_date > $2
			  )`
	var exists bool
	if err := s.conn(ctx).QueryRowContext(ctx, query, accountID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateSubscription вставляет подписку и возвращает её ID. Нарушение
// уникального индекса активных подписок возвращается как ErrActiveSubscriptionExists.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (account_id, plan_id, start_date, end_date, status, auto_renew)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		sub.AccountID, sub.PlanID, sub.StartDate, sub.EndDate, sub.Status, sub.AutoRenew).Scan(&newID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrActiveSubscriptionExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

const subscriptionColumns = `id, account_id, plan_id, start_date, end_date, status, auto_renew, created_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.ID, &sub.AccountID, &sub.PlanID, &sub.StartDate, &sub.EndDate,
		&sub.Status, &sub.AutoRenew, &sub.CreatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

// LockActiveSubscription блокирует самую свежую активную неистёкшую подписку аккаунта.
func (s *Storage) LockActiveSubscription(ctx context.Context, accountID int64, now time.Time) (*models.Subscription, error) {
	const op = "storage.LockActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE account_id = $1 AND status = 'active' AND end_date > $2
			  ORDER BY end_date DESC
			  LIMIT 1
			  FOR UPDATE`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, accountID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// LockSubscription блокирует подписку по ID.
func (s *Storage) LockSubscription(ctx context.Context, subscriptionID int64) (*models.Subscription, error) {
	const op = "storage.LockSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, subscriptionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CancelSubscription выключает автопродление и помечает подписку отменённой.
func (s *Storage) CancelSubscription(ctx context.Context, subscriptionID int64) error {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = 'cancelled', auto_renew = FALSE WHERE id = $1`
	if _, err := s.conn(ctx).ExecContext(ctx, query, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetSubscriptionStatus меняет статус подписки.
func (s *Storage) SetSubscriptionStatus(ctx context.Context, subscriptionID int64, status string) error {
	const op = "storage.SetSubscriptionStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE id = $2`
	if _, err := s.conn(ctx).ExecContext(ctx, query, status, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindExpiredSubscriptions находит активные и отменённые подписки с прошедшей датой окончания.
func (s *Storage) FindExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	const op = "storage.FindExpiredSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE status IN ('active', 'cancelled') AND end_date <= $1
			  ORDER BY end_date
			  LIMIT $2`
	rows, err := s.conn(ctx).QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindSubscriptionsExpiringBetween находит подписки без автопродления,
// которые закончатся в интервале [from, to).
func (s *Storage) FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error) {
	const op = "storage.FindSubscriptionsExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.account_id, a.email, a.username, p.name, s.end_date
			  FROM subscriptions s
			  JOIN accounts a ON a.id = s.account_id
			  JOIN subscription_plans p ON p.id = s.plan_id
			  WHERE s.status IN ('active', 'cancelled')
			    AND NOT s.auto_renew
			    AND a.is_active
			    AND s.end_date >= $1 AND s.end_date < $2
			  ORDER BY s.end_date`
	rows, err := s.conn(ctx).QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiringSubscription
	for rows.Next() {
		var e models.ExpiringSubscription
		var username sql.NullString
		if err = rows.Scan(&e.SubscriptionID, &e.AccountID, &e.Email, &username, &e.PlanName, &e.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if username.Valid {
			e.Username = &username.String
		}
		result = append(result, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
