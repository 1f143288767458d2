package generation

import (
	"context"

	"github.com/magabrotheeeer/cortex/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/cortex/internal/models"
)

// QueueDispatcher публикует задания в exchange генерации.
type QueueDispatcher struct {
	ch rabbitmq.Publisher
}

// NewQueueDispatcher создает диспетчер поверх канала RabbitMQ.
func NewQueueDispatcher(ch rabbitmq.Publisher) *QueueDispatcher {
	return &QueueDispatcher{ch: ch}
}

// Dispatch публикует задание с ключом маршрутизации job.
func (d *QueueDispatcher) Dispatch(_ context.Context, job models.GenerationJob) error {
	return rabbitmq.PublishMessage(d.ch, rabbitmq.GenerationExchange, rabbitmq.JobRoutingKey, job)
}
