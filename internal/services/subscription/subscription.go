// Package subscription реализует каталог тарифов, оформление и отмену
// подписки, а также продление и деактивацию истёкших подписок.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/cortex/internal/lib/metrics"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

const (
	plansCacheKey = "plans:all"
	plansCacheTTL = time.Hour
)

// Repository описывает операции хранилища, нужные менеджеру подписок.
type Repository interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	GetPlan(ctx context.Context, planID int64) (*models.Plan, error)
	GetCurrentSubscription(ctx context.Context, accountID int64, now time.Time) (*models.SubscriptionView, error)
	LockAccount(ctx context.Context, accountID int64) (*models.Account, error)
	ExpireStaleSubscriptions(ctx context.Context, accountID int64, now time.Time) (int64, error)
	HasActiveSubscription(ctx context.Context, accountID int64, now time.Time) (bool, error)
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	LockActiveSubscription(ctx context.Context, accountID int64, now time.Time) (*models.Subscription, error)
	LockSubscription(ctx context.Context, subscriptionID int64) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID int64) error
	SetSubscriptionStatus(ctx context.Context, subscriptionID int64, status string) error
	FindExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	CreatePayment(ctx context.Context, p models.PaymentTransaction) (int64, error)
	ListPayments(ctx context.Context, accountID int64) ([]models.PaymentTransaction, error)
}

// Transactor выполняет функцию в одной транзакции хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Ledger устанавливает баланс токенов при оплате плана.
type Ledger interface {
	Reset(ctx context.Context, accountID, balance int64) error
}

// Cache описывает кеш каталога тарифов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Notifier ставит письмо в очередь уведомлений.
type Notifier interface {
	Notify(ctx context.Context, msg models.EmailMessage)
}

// Service менеджер подписок.
type Service struct {
	repo     Repository
	tx       Transactor
	ledger   Ledger
	cache    Cache
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, tx Transactor, ledger Ledger, cache Cache, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		cache:    cache,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListPlans возвращает каталог тарифов, отсортированный по цене.
// Ошибки кеша только логируются.
func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	const op = "subscription.ListPlans"

	var plans []models.Plan
	found, err := s.cache.Get(ctx, plansCacheKey, &plans)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found {
		return plans, nil
	}

	plans, err = s.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, plansCacheKey, plans, plansCacheTTL); err != nil {
		s.log.Warn("failed to cache plans", sl.Err(err))
	}
	return plans, nil
}

// Current возвращает действующую подписку аккаунта. Отменённая подписка
// считается действующей до даты окончания.
func (s *Service) Current(ctx context.Context, accountID int64) (*models.SubscriptionView, error) {
	const op = "subscription.Current"

	view, err := s.repo.GetCurrentSubscription(ctx, accountID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return view, nil
}

// Subscribe оформляет подписку на план: создаёт подписку и запись об оплате
// и устанавливает баланс равным числу токенов плана. Всё выполняется в одной
// транзакции под блокировкой строки аккаунта.
func (s *Service) Subscribe(ctx context.Context, accountID, planID int64, paymentMethod string) (*models.SubscribeResult, error) {
	const op = "subscription.Subscribe"
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}
	now := s.now()

	var (
		account *models.Account
		plan    *models.Plan
		result  models.SubscribeResult
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if account, err = s.repo.LockAccount(ctx, accountID); err != nil {
			return err
		}
		if plan, err = s.repo.GetPlan(ctx, planID); err != nil {
			return err
		}
		if _, err = s.repo.ExpireStaleSubscriptions(ctx, accountID, now); err != nil {
			return err
		}
		active, err := s.repo.HasActiveSubscription(ctx, accountID, now)
		if err != nil {
			return err
		}
		if active {
			return models.ErrActiveSubscriptionExists
		}

		res, err := s.activate(ctx, accountID, plan, paymentMethod, now)
		if err != nil {
			return err
		}
		result = *res
		return nil
	})
	if err != nil {
		if account != nil && plan != nil && !errors.Is(err, models.ErrConflict) {
			s.notifier.Notify(ctx, models.EmailMessage{
				Kind:     models.EmailSubscriptionFailed,
				To:       account.Email,
				Username: models.DisplayName(account.Username, account.Email),
				PlanName: plan.Name,
			})
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SubscriptionsCreated.WithLabelValues(plan.Name).Inc()
	s.notifyActivated(ctx, account, &result)
	return &result, nil
}

// activate создаёт подписку на plan, запись об оплате и сбрасывает баланс.
// Вызывается внутри транзакции.
func (s *Service) activate(ctx context.Context, accountID int64, plan *models.Plan, paymentMethod string, now time.Time) (*models.SubscribeResult, error) {
	endDate := now.AddDate(0, 0, plan.DurationDays)
	subID, err := s.repo.CreateSubscription(ctx, models.Subscription{
		AccountID: accountID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   endDate,
		Status:    models.SubscriptionActive,
		AutoRenew: true,
	})
	if err != nil {
		return nil, err
	}
	paymentID, err := s.repo.CreatePayment(ctx, models.PaymentTransaction{
		AccountID:      accountID,
		SubscriptionID: &subID,
		Amount:         plan.Price,
		PaymentMethod:  paymentMethod,
		Status:         models.PaymentSucceeded,
	})
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Reset(ctx, accountID, plan.TokensIncluded); err != nil {
		return nil, err
	}
	return &models.SubscribeResult{
		SubscriptionID: subID,
		PaymentID:      paymentID,
		PlanName:       plan.Name,
		TokensIncluded: plan.TokensIncluded,
		EndDate:        endDate,
	}, nil
}

func (s *Service) notifyActivated(ctx context.Context, account *models.Account, res *models.SubscribeResult) {
	endDate := res.EndDate
	s.notifier.Notify(ctx, models.EmailMessage{
		Kind:     models.EmailSubscriptionActivated,
		To:       account.Email,
		Username: models.DisplayName(account.Username, account.Email),
		PlanName: res.PlanName,
		Balance:  res.TokensIncluded,
		EndDate:  &endDate,
	})
}

// Cancel отключает автопродление действующей подписки. Доступ и баланс
// сохраняются до даты окончания.
func (s *Service) Cancel(ctx context.Context, accountID int64, reason string) (*models.CancelResult, error) {
	const op = "subscription.Cancel"
	now := s.now()

	var result models.CancelResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockAccount(ctx, accountID); err != nil {
			return err
		}
		sub, err := s.repo.LockActiveSubscription(ctx, accountID, now)
		if err != nil {
			return err
		}
		if err := s.repo.CancelSubscription(ctx, sub.ID); err != nil {
			return err
		}
		result.EndDate = sub.EndDate
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscription cancelled",
		slog.Int64("account_id", accountID),
		slog.String("reason", reason),
		slog.Time("end_date", result.EndDate),
	)
	return &result, nil
}

// Payments возвращает историю оплат аккаунта.
func (s *Service) Payments(ctx context.Context, accountID int64) ([]models.PaymentTransaction, error) {
	const op = "subscription.Payments"

	payments, err := s.repo.ListPayments(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

type expiryOutcome int

const (
	outcomeSkipped expiryOutcome = iota
	outcomeRenewed
	outcomeDeactivated
)

// ProcessExpired обрабатывает до limit истёкших подписок: активные с
// автопродлением продлеваются на тот же план, остальные деактивируются.
// Каждая подписка обрабатывается в своей транзакции.
func (s *Service) ProcessExpired(ctx context.Context, limit int) (models.RenewalResult, error) {
	const op = "subscription.ProcessExpired"
	var result models.RenewalResult
	now := s.now()

	subs, err := s.repo.FindExpiredSubscriptions(ctx, now, limit)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		outcome, err := s.processExpired(ctx, sub, now)
		if err != nil {
			result.Failed++
			s.log.Error("failed to process expired subscription",
				slog.Int64("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		switch outcome {
		case outcomeRenewed:
			result.Renewed++
		case outcomeDeactivated:
			result.Deactivated++
		}
	}
	return result, nil
}

func (s *Service) processExpired(ctx context.Context, sub models.Subscription, now time.Time) (expiryOutcome, error) {
	outcome := outcomeSkipped
	var (
		account *models.Account
		renewal *models.SubscribeResult
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if account, err = s.repo.LockAccount(ctx, sub.AccountID); err != nil {
			return err
		}
		cur, err := s.repo.LockSubscription(ctx, sub.ID)
		if err != nil {
			return err
		}
		if cur.Status == models.SubscriptionInactive || cur.EndDate.After(now) {
			return nil
		}
		if err := s.repo.SetSubscriptionStatus(ctx, cur.ID, models.SubscriptionInactive); err != nil {
			return err
		}
		if cur.Status != models.SubscriptionActive || !cur.AutoRenew || !account.IsActive {
			outcome = outcomeDeactivated
			return nil
		}

		plan, err := s.repo.GetPlan(ctx, cur.PlanID)
		if err != nil {
			return err
		}
		if renewal, err = s.activate(ctx, cur.AccountID, plan, models.DefaultPaymentMethod, now); err != nil {
			return err
		}
		outcome = outcomeRenewed
		return nil
	})
	if err != nil {
		return outcomeSkipped, err
	}

	if outcome == outcomeRenewed {
		metrics.SubscriptionsCreated.WithLabelValues(renewal.PlanName).Inc()
		s.notifyActivated(ctx, account, renewal)
	}
	return outcome, nil
}
