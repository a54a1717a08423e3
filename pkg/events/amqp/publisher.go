// Package amqp publishes order events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"coffeeshop/pkg/events"
	"coffeeshop/pkg/logger"
)

const publishTimeout = 10 * time.Second

// Channel is the subset of *amqp091.Channel used by Publisher.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher sends each envelope on its own goroutine with the event type as
// routing key. Failures are logged, never returned.
type Publisher struct {
	ch       Channel
	exchange string
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewPublisher returns a Publisher writing to exchange over ch.
func NewPublisher(ch Channel, exchange string, log *logger.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// Publish implements events.Publisher.
func (p *Publisher) Publish(ctx context.Context, env events.Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		p.log.Error(ctx, "amqp encode", "event_id", env.EventID, "error", err)
		return
	}
	msg := amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.CorrelationID,
		Timestamp:     env.OccurredAt,
		Type:          env.EventType,
		Body:          body,
	}

	// The request context ends with the response; keep its values only.
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.ch.PublishWithContext(ctx, p.exchange, env.EventType, false, false, msg); err != nil {
			p.log.Error(ctx, "amqp publish", "exchange", p.exchange, "routing_key", env.EventType, "event_id", env.EventID, "error", err)
			return
		}
		p.log.Debug(ctx, "amqp published", "exchange", p.exchange, "routing_key", env.EventType, "size", len(body))
	}()
}

// Wait blocks until in-flight publishes have finished.
func (p *Publisher) Wait() { p.wg.Wait() }

// Connection owns the broker connection and the channel used for publishing.
type Connection struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// Dial connects to url, retrying with a linear backoff, and declares
// exchange as a durable topic exchange.
func Dial(ctx context.Context, log *logger.Logger, url, exchange string, retries int) (*Connection, error) {
	if retries < 1 {
		retries = 1
	}
	var err error
	for i := 0; i < retries; i++ {
		var c *Connection
		if c, err = connect(url, exchange); err == nil {
			return c, nil
		}
		if i == retries-1 {
			break
		}
		wait := time.Duration(i+1) * 2 * time.Second
		log.Warn(ctx, "rabbitmq connect failed", "attempt", i+1, "retry_in", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", retries, err)
}

func connect(url, exchange string) (*Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Connection{conn: conn, channel: ch}, nil
}

// Channel returns the publishing channel.
func (c *Connection) Channel() *amqp091.Channel { return c.channel }

// Close closes the channel and the connection.
func (c *Connection) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	return c.conn.Close()
}
