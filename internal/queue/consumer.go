package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer listens to the event queues and records each delivery request
// in the structured log.  Actual email and push delivery live in separate
// workers; this consumer is the in-process audit trail for them.
type Consumer struct {
	url string
	log *zap.Logger
}

func NewConsumer(url string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{url: url, log: logger.Named("consumer")}
}

var consumedQueues = []string{QueueNotificationCreated, QueueVerificationRequired, QueueClientDeactivated}

// Run connects to RabbitMQ, declares the event queues and consumes them
// until ctx is cancelled.  Lost connections are retried with exponential
// backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	if c.url == "" {
		return ErrPublisherDisabled
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type delivery struct {
	queue string
	amqp.Delivery
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	merged := make(chan delivery)
	for _, q := range consumedQueues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func(q string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, Delivery: d}:
				case <-ctx.Done():
					return
				}
			}
		}(q, msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-merged:
			if err := c.Handle(d.queue, d.Body); err != nil {
				c.log.Error("handle message failed", zap.String("queue", d.queue), zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body from queueName and logs it.
func (c *Consumer) Handle(queueName string, body []byte) error {
	switch queueName {
	case QueueNotificationCreated:
		var ev NotificationCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.UserID == "" || ev.Type == "" {
			return errors.New("notification event without user or type")
		}
		c.log.Info("notification dispatch requested",
			zap.String("user_id", ev.UserID),
			zap.String("type", ev.Type),
			zap.Bool("email", ev.Email),
			zap.Bool("push", ev.Push),
		)
	case QueueVerificationRequired:
		var ev VerificationRequestedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.UserID == "" || ev.Email == "" {
			return errors.New("verification event without user or email")
		}
		// The link carries a live token, so only its expiry is logged.
		c.log.Info("verification email requested",
			zap.String("user_id", ev.UserID),
			zap.Time("expires_at", ev.ExpiresAt),
		)
	case QueueClientDeactivated:
		var ev ClientDeactivatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		c.log.Info("client deactivated",
			zap.String("user_id", ev.UserID),
			zap.String("by", ev.DeactivatedBy),
			zap.Time("at", ev.DeactivatedAt),
		)
	default:
		return fmt.Errorf("unknown queue %q", queueName)
	}
	return nil
}
