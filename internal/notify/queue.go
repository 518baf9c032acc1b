package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the part of *amqp.Channel the dispatcher needs.
type publisher interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
}

// QueueDispatcher hands alerts to a RabbitMQ queue for an external mail
// sender to consume.
type QueueDispatcher struct {
	ch        publisher
	queueName string
	closeFn   func() error
}

// DialQueue connects to RabbitMQ, declares a durable queue and returns a
// dispatcher publishing to it.
func DialQueue(url, queueName string) (*QueueDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queueName, err)
	}

	d := NewQueueDispatcher(ch, queueName)
	d.closeFn = func() error {
		if err := ch.Close(); err != nil {
			return err
		}
		return conn.Close()
	}
	return d, nil
}

// NewQueueDispatcher publishes to queueName on an existing channel.
func NewQueueDispatcher(ch publisher, queueName string) *QueueDispatcher {
	return &QueueDispatcher{ch: ch, queueName: queueName}
}

// Deliver publishes the message as JSON.
func (q *QueueDispatcher) Deliver(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling queue message: %w", err)
	}

	err = q.ch.PublishWithContext(
		ctx,
		"",
		q.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.NotificationID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", q.queueName, err)
	}
	return nil
}

// Close releases the channel and connection opened by DialQueue.
func (q *QueueDispatcher) Close() error {
	if q.closeFn == nil {
		return nil
	}
	return q.closeFn()
}
