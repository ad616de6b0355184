package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Exchange и ключи маршрутизации событий регистрации отпечатков.
const (
	Exchange = "enrollment"

	RoutingKeyFingerprintStored   = "fingerprint.stored"
	RoutingKeyEnrollmentCompleted = "enrollment.completed"
)

// FingerprintStored событие об успешно сохраненном шаблоне.
type FingerprintStored struct {
	UserID int64  `json:"user_id"`
	Finger int    `json:"finger"`
	GymID  string `json:"gym_id"`
}

// EnrollmentCompleted событие о завершении регистрации участника.
type EnrollmentCompleted struct {
	UserID string `json:"user_id"`
	GymID  string `json:"gym_id"`
}

// QueueConfig очередь и ключ, на который она подписана.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// DefaultQueues очереди, объявляемые брокером при старте.
func DefaultQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "enrollment.fingerprints", RoutingKey: RoutingKeyFingerprintStored},
		{QueueName: "enrollment.completed", RoutingKey: RoutingKeyEnrollmentCompleted},
	}
}

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "events.Connect"
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

// Publisher публикует события в обменник регистрации.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher открывает канал, объявляет обменник и очереди.
func NewPublisher(conn *amqp.Connection, queues []QueueConfig) (*Publisher, error) {
	const op = "events.NewPublisher"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
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

	return &Publisher{ch: ch}, nil
}

// Publish сериализует событие в JSON и публикует его с указанным ключом.
func (p *Publisher) Publish(routingKey string, v any) error {
	const op = "events.Publisher.Publish"

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал публикации.
func (p *Publisher) Close() error {
	return p.ch.Close()
}
