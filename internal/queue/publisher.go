package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrPublisherDisabled is returned by a Publisher built without a broker URL.
var ErrPublisherDisabled = errors.New("event publishing disabled")

// Publisher publishes JSON events to RabbitMQ.  Errors are logged and
// returned to allow callers to ignore failures without interrupting the
// main request flow.  The connection is opened lazily and reopened after
// it closes.
type Publisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewPublisher builds a Publisher.  An empty url yields a disabled
// publisher whose Publish returns ErrPublisherDisabled.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{url: url, log: logger.Named("publisher")}
}

// Enabled reports whether a broker URL is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

func (p *Publisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// Publish marshals payload and sends it to the named durable queue.
// Messages are marked as persistent.
func (p *Publisher) Publish(ctx context.Context, queueName string, payload any) error {
	if !p.Enabled() {
		return ErrPublisherDisabled
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	conn, err := p.connection()
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		p.log.Warn("queue declare failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		p.log.Warn("publish failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
