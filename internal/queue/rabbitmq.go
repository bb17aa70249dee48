package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// RetryCountHeader carries the redelivery count across republished jobs.
const RetryCountHeader = "x-retry-count"

// RabbitMQ is the durable queue implementation: one durable queue shared by
// all dispatch workers.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	name string
}

func DialRabbitMQ(url, queueName string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &RabbitMQ{conn: conn, ch: ch, name: queueName}, nil
}

func (q *RabbitMQ) Publish(_ context.Context, job DispatchJob) error {
	return q.publish(job, 0)
}

// Republish re-enqueues a failed job with an incremented retry count.
func (q *RabbitMQ) Republish(job DispatchJob, retryCount int) error {
	return q.publish(job, retryCount)
}

func (q *RabbitMQ) publish(job DispatchJob, retryCount int) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.ch.Publish("", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{RetryCountHeader: int32(retryCount)},
		Body:         body,
	})
}

// Consume registers a consumer with manual acknowledgements.
func (q *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	return q.ch.Consume(
		q.name,
		"",    // consumer tag
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
}

// RetryCount reads the redelivery count off a consumed message.
func RetryCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch v := d.Headers[RetryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (q *RabbitMQ) Close() {
	q.ch.Close()
	q.conn.Close()
}

var _ Queue = (*RabbitMQ)(nil)
