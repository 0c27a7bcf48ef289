// Package queue broadcasts catalog events between server and worker
// processes over a RabbitMQ topic exchange.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const Exchange = "pubsub_exchange"

// Publisher is the part of *amqp091.Channel used to publish.
type Publisher interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Subscriber is the part of *amqp091.Channel used to consume a topic.
type Subscriber interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
}

func Init(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func declareExchange(ch interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
}) error {
	return ch.ExchangeDeclare(
		Exchange,
		"topic",
		false, // durable
		true,  // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

func PublishTopic(ctx context.Context, ch Publisher, topic string, contentType string, data []byte) error {
	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  contentType,
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}
	if err := ch.PublishWithContext(ctx, Exchange, topic, false, false, publishing); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Handler processes one delivery. A returned error nacks the message; it is
// requeued once and dropped if it fails again.
type Handler func(ctx context.Context, msg amqp091.Delivery) error

// SubscribeTopic binds a private, auto-deleted queue to topic and runs
// handler for every message until ctx is done or the channel closes.
func SubscribeTopic(ctx context.Context, ch Subscriber, topic string, handler Handler) error {
	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, topic, Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", topic, err)
	}

	msgs, err := ch.Consume(
		q.Name,
		topic+"_consumer",
		false, // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	logger.Info("Listening for messages", "topic", topic)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping consumer", "topic", topic)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "topic", topic)
				return nil
			}
			dispatch(ctx, topic, msg, handler)
		}
	}
}

func dispatch(ctx context.Context, topic string, msg amqp091.Delivery, handler Handler) {
	if err := handler(ctx, msg); err != nil {
		requeue := !msg.Redelivered
		logger.Error("Error processing message", "topic", topic, "requeue", requeue, "err", err)
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			logger.Error("Failed to nack message", "err", nackErr)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", "err", err)
	}
}
