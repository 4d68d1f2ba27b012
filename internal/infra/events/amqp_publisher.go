package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"daily365_bot/internal/domain/delivery"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends delivery events as persistent JSON messages to a durable queue.
// A failed publish drops the connection; the next event redials.
type AMQPPublisher struct {
	mu     sync.Mutex
	url    string
	queue  string
	conn   *amqp.Connection
	ch     channel
	logger *logrus.Entry
}

var _ delivery.EventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials url and declares queue.
func NewAMQPPublisher(url, queue string, logger *logrus.Entry) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, queue: queue, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open broker channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// Publish implements delivery.EventPublisher. The broker client is not context-aware,
// so ctx is only checked before sending.
func (p *AMQPPublisher) Publish(ctx context.Context, event delivery.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
		p.logger.Info("Reconnected to event broker")
	}

	err = p.ch.Publish(
		"",      // default exchange
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
