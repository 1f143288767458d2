// Package scheduler запускает периодические задачи: обработку истёкших подписок,
// напоминания о скором окончании подписки и о малом остатке токенов.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/cortex/internal/config"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Repository описывает выборки для напоминаний.
type Repository interface {
	FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error)
	FindLowBalanceAccounts(ctx context.Context, threshold int64, limit int) ([]models.LowBalanceAccount, error)
}

// Renewer обрабатывает истёкшие подписки пачкой.
type Renewer interface {
	ProcessExpired(ctx context.Context, limit int) (models.RenewalResult, error)
}

// Notifier ставит письмо в очередь уведомлений.
type Notifier interface {
	Notify(ctx context.Context, msg models.EmailMessage)
}

// Service планировщик фоновых задач.
type Service struct {
	repo     Repository
	renewer  Renewer
	notifier Notifier
	cfg      config.Scheduler
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, renewer Renewer, notifier Notifier, cfg config.Scheduler, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		renewer:  renewer,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunExpiry обрабатывает истёкшие подписки сразу и затем с периодом ExpiryInterval,
// пока не отменён ctx.
func (s *Service) RunExpiry(ctx context.Context) {
	s.every(ctx, s.cfg.ExpiryInterval, func(ctx context.Context) {
		s.ProcessExpired(ctx)
	})
}

// RunReminders рассылает напоминания сразу и затем с периодом ReminderInterval.
func (s *Service) RunReminders(ctx context.Context) {
	s.every(ctx, s.cfg.ReminderInterval, func(ctx context.Context) {
		s.SendExpiringReminders(ctx)
		s.SendLowBalanceReminders(ctx)
	})
}

func (s *Service) every(ctx context.Context, interval time.Duration, job func(ctx context.Context)) {
	job(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// ProcessExpired обрабатывает истёкшие подписки пачками, пока пачки заполняются целиком.
func (s *Service) ProcessExpired(ctx context.Context) models.RenewalResult {
	s.log.Info("starting expired subscriptions sweep")
	var total models.RenewalResult

	for {
		res, err := s.renewer.ProcessExpired(ctx, s.cfg.BatchSize)
		if err != nil {
			s.log.Error("failed to process expired subscriptions", sl.Err(err))
			break
		}
		total.Renewed += res.Renewed
		total.Deactivated += res.Deactivated
		total.Failed += res.Failed
		if res.Renewed+res.Deactivated < s.cfg.BatchSize || ctx.Err() != nil {
			break
		}
	}

	s.log.Info("expired subscriptions processed",
		slog.Int("renewed", total.Renewed),
		slog.Int("deactivated", total.Deactivated),
		slog.Int("failed", total.Failed),
	)
	return total
}

// SendExpiringReminders напоминает о подписках без автопродления,
// которые закончатся в течение ближайшего ReminderInterval.
func (s *Service) SendExpiringReminders(ctx context.Context) int {
	now := s.now()
	subs, err := s.repo.FindSubscriptionsExpiringBetween(ctx, now, now.Add(s.cfg.ReminderInterval))
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return 0
	}
	if len(subs) == 0 {
		s.log.Info("no expiring subscriptions found")
		return 0
	}

	s.log.Info("found expiring subscriptions", slog.Int("count", len(subs)))
	for _, sub := range subs {
		endDate := sub.EndDate
		s.notifier.Notify(ctx, models.EmailMessage{
			Kind:     models.EmailSubscriptionExpiring,
			To:       sub.Email,
			Username: models.DisplayName(sub.Username, sub.Email),
			PlanName: sub.PlanName,
			EndDate:  &endDate,
		})
	}
	return len(subs)
}

// SendLowBalanceReminders напоминает подписчикам, у которых баланс ниже порога.
func (s *Service) SendLowBalanceReminders(ctx context.Context) int {
	accounts, err := s.repo.FindLowBalanceAccounts(ctx, s.cfg.LowBalanceThreshold, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("failed to find low balance accounts", sl.Err(err))
		return 0
	}

	for _, a := range accounts {
		s.notifier.Notify(ctx, models.EmailMessage{
			Kind:     models.EmailLowBalance,
			To:       a.Email,
			Username: models.DisplayName(a.Username, a.Email),
			Balance:  a.TokenBalance,
		})
	}
	s.log.Info("low balance reminders queued", slog.Int("count", len(accounts)))
	return len(accounts)
}
