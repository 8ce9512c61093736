// Package rabbitmq подключается к RabbitMQ, объявляет очереди уведомлений,
// публикует события и запускает потребителей.
package rabbitmq

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/serene987/vidora/internal/lib/sl"
)

// Exchange имя обменника уведомлений.
const Exchange = "notifications"

// ErrBrokerUnavailable брокер не ответил ни на одну попытку подключения.
var ErrBrokerUnavailable = errors.New("rabbitmq broker unavailable")

// Connect подключается к брокеру, повторяя попытку retries раз с паузой delay.
// Последняя ошибка подключения возвращается вместе с ErrBrokerUnavailable.
func Connect(url string, retries int, delay time.Duration, log *slog.Logger) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"

	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warn("broker not reachable",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("retries", retries),
			sl.Err(err),
		)
		if attempt < retries {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("%s: %w: %w", op, ErrBrokerUnavailable, lastErr)
}

// SetupChannel открывает канал, объявляет обменник и привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
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
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
