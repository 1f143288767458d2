// Package rabbitmq содержит подключение к брокеру, объявление топологии,
// публикацию JSON-сообщений и конкурентный потребитель очереди.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect подключается к брокеру, повторяя попытки retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, выставляет prefetch и объявляет обменники
// и очереди. Объявление идемпотентно, его выполняет каждый процесс.
func SetupChannel(conn *amqp.Connection, exchanges []ExchangeConfig, prefetch int) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	for _, ex := range exchanges {
		err = ch.ExchangeDeclare(
			ex.Name,
			"direct",
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare exchange %s: %w", op, ex.Name, err)
		}

		for _, q := range ex.Queues {
			_, err := ch.QueueDeclare(
				q.QueueName,
				true,
				false,
				false,
				false,
				nil,
			)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
			}

			err = ch.QueueBind(
				q.QueueName,
				q.RoutingKey,
				ex.Name,
				false,
				nil,
			)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
			}
		}
	}

	return ch, nil
}
