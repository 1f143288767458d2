// Package notification ставит письма в очередь notifications.email.
package notification

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/cortex/internal/lib/metrics"
	"github.com/magabrotheeeer/cortex/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/cortex/internal/lib/sl"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// Notifier публикует письма. Ошибки публикации не возвращаются вызывающему,
// они логируются и учитываются в метриках.
type Notifier struct {
	ch  rabbitmq.Publisher
	log *slog.Logger
}

// New создает Notifier поверх канала RabbitMQ.
func New(ch rabbitmq.Publisher, log *slog.Logger) *Notifier {
	return &Notifier{
		ch:  ch,
		log: log,
	}
}

// Notify публикует msg с ключом маршрутизации email.
func (n *Notifier) Notify(_ context.Context, msg models.EmailMessage) {
	err := rabbitmq.PublishMessage(n.ch, rabbitmq.NotificationsExchange, rabbitmq.EmailRoutingKey, msg)
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(msg.Kind).Inc()
		n.log.Error("failed to publish notification", slog.String("kind", msg.Kind), sl.Err(err))
		return
	}
	n.log.Debug("notification queued", slog.String("kind", msg.Kind))
}
