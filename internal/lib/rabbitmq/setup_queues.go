package rabbitmq

// Обменники, очереди и ключи маршрутизации сервиса.
const (
	NotificationsExchange = "notifications"
	EmailQueue            = "notifications.email"
	EmailRoutingKey       = "email"

	GenerationExchange = "generation"
	JobsQueue          = "generation.jobs"
	JobRoutingKey      = "job"
	ResultsQueue       = "generation.results"
	ResultRoutingKey   = "result"
)

// QueueConfig очередь и ключ, с которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// ExchangeConfig direct-обменник и привязанные к нему очереди.
type ExchangeConfig struct {
	Name   string
	Queues []QueueConfig
}

// GetTopology возвращает всю топологию брокера: уведомления и задания генерации.
func GetTopology() []ExchangeConfig {
	return []ExchangeConfig{
		{
			Name: NotificationsExchange,
			Queues: []QueueConfig{
				{QueueName: EmailQueue, RoutingKey: EmailRoutingKey},
			},
		},
		{
			Name: GenerationExchange,
			Queues: []QueueConfig{
				{QueueName: JobsQueue, RoutingKey: JobRoutingKey},
				{QueueName: ResultsQueue, RoutingKey: ResultRoutingKey},
			},
		},
	}
}
