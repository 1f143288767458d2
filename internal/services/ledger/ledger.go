// Package ledger ведёт баланс токенов аккаунта: списание за генерации,
// возврат, сброс при оплате тарифа и история расходов.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/magabrotheeeer/cortex/internal/lib/metrics"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// DefaultHistoryLimit сколько записей истории отдаётся без явного лимита.
const DefaultHistoryLimit = 50

// Repository описывает операции хранилища над балансом.
type Repository interface {
	GetTokenBalance(ctx context.Context, accountID int64) (int64, error)
	SumCompletedTokens(ctx context.Context, accountID int64) (int64, error)
	DeductTokens(ctx context.Context, accountID, amount int64) (bool, error)
	AddTokens(ctx context.Context, accountID, amount int64) (bool, error)
	SetTokenBalance(ctx context.Context, accountID, balance int64) error
	ListTokenUsage(ctx context.Context, accountID int64, limit int) ([]models.TokenUsage, error)
}

// Service реализует операции над балансом токенов.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Balance возвращает текущий баланс, сумму потраченного на завершённые
// генерации и процент остатка. Для несуществующего аккаунта все значения нулевые.
func (s *Service) Balance(ctx context.Context, accountID int64) (*models.TokenBalance, error) {
	const op = "ledger.Balance"

	balance, err := s.repo.GetTokenBalance(ctx, accountID)
	if errors.Is(err, models.ErrAccountNotFound) {
		return &models.TokenBalance{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	used, err := s.repo.SumCompletedTokens(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenBalance{
		Balance:             balance,
		TotalUsed:           used,
		PercentageRemaining: percentage(balance, used),
	}, nil
}

func percentage(balance, used int64) float64 {
	total := balance + used
	if total <= 0 {
		return 0
	}
	return math.Round(float64(balance)/float64(total)*100*100) / 100
}

// Deduct списывает amount токенов одной условной операцией.
// false означает, что баланса не хватило и ничего не изменилось.
func (s *Service) Deduct(ctx context.Context, accountID, amount int64) (bool, error) {
	const op = "ledger.Deduct"
	if amount < 0 {
		return false, fmt.Errorf("%s: %w", op, models.ErrInvalidAmount)
	}

	ok, err := s.repo.DeductTokens(ctx, accountID, amount)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		metrics.InsufficientTokens.Inc()
		s.log.Debug("insufficient tokens", slog.Int64("account_id", accountID), slog.Int64("amount", amount))
	}
	return ok, nil
}

// Refund возвращает amount токенов на баланс. Отсутствие аккаунта не считается ошибкой.
func (s *Service) Refund(ctx context.Context, accountID, amount int64) error {
	const op = "ledger.Refund"
	if amount < 0 {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidAmount)
	}

	ok, err := s.repo.AddTokens(ctx, accountID, amount)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.log.Warn("refund skipped, account not found", slog.Int64("account_id", accountID), slog.Int64("amount", amount))
	}
	return nil
}

// Reset заменяет баланс значением balance (начисление по тарифу).
func (s *Service) Reset(ctx context.Context, accountID, balance int64) error {
	const op = "ledger.Reset"
	if balance < 0 {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidAmount)
	}
	if err := s.repo.SetTokenBalance(ctx, accountID, balance); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UsageHistory возвращает последние списания, новые первыми.
func (s *Service) UsageHistory(ctx context.Context, accountID int64, limit int) ([]models.TokenUsage, error) {
	const op = "ledger.UsageHistory"
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	usage, err := s.repo.ListTokenUsage(ctx, accountID, limit)
	if err != nil {
		s.log.Error("failed to list token usage", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return usage, nil
}
