package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/echolater/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the part of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes to a durable topic exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	logger   logging.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// NewRabbitMQPublisher dials url and declares the exchange.
func NewRabbitMQPublisher(url string, logger logging.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info(context.Background(), "RabbitMQ publisher connected", "exchange", ExchangeName)

	return newRabbitMQPublisher(conn, ch, logger), nil
}

func newRabbitMQPublisher(conn *amqp.Connection, ch amqpChannel, logger logging.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: ExchangeName,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish sends payload as a persistent JSON message. Publishing on a channel
// is not safe for concurrent use, so calls are serialized.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.Debug(ctx, "event published", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Close shuts the channel and then the connection. A channel error is only logged.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn(context.Background(), "error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }

func (NopPublisher) Close() error { return nil }
