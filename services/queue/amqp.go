package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborchat/harborchat/services/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPQueue publishes email jobs as JSON to a named broker queue. A
// separate consumer process owns delivery; this side never waits for it.
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *logging.Service
}

func NewAMQPQueue(url, queueName string, logger *logging.Service) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}

	logger.Info("outbound email queue connected", zap.String("queue", queueName))

	return &AMQPQueue{
		conn:    conn,
		channel: ch,
		queue:   q,
		logger:  logger,
	}, nil
}

func (q *AMQPQueue) Enqueue(job EmailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal email job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(
		ctx,
		"",
		q.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish email job: %w", err)
	}

	q.logger.Debug("email job published",
		zap.String("job_id", job.ID),
		zap.String("queue", q.queue.Name))
	return nil
}

func (q *AMQPQueue) Close() {
	_ = q.channel.Close()
	_ = q.conn.Close()
}
