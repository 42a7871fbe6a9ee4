package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange audit events are published to.
const DefaultExchange = "learntrack.audit"

const publishTimeout = 5 * time.Second

// amqpChannel is the subset of *amqp091.Channel used by Publisher.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher is a Sink that publishes events to a RabbitMQ topic exchange.
// Routing keys are "progress.<kind>".
type Publisher struct {
	conn     *amqp091.Connection
	channel  amqpChannel
	exchange string
	enabled  bool
}

// envelope is the message body published for each event.
type envelope struct {
	Kind  Kind  `json:"kind"`
	Event Event `json:"event"`
}

// NewPublisher connects to the broker at uri and declares exchange. An empty
// uri returns a disabled publisher that drops events.
func NewPublisher(uri, exchange string) (*Publisher, error) {
	if uri == "" {
		slog.Warn("AMQP URL is empty, audit event publishing is disabled")
		return &Publisher{enabled: false}, nil
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange, enabled: true}, nil
}

// Enabled reports whether the publisher is connected to a broker.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// RoutingKey returns the routing key events of kind k are published with.
func RoutingKey(k Kind) string {
	return "progress." + string(k)
}

func (p *Publisher) Record(ctx context.Context, e Event) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(envelope{Kind: e.Kind(), Event: e})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange,
		RoutingKey(e.Kind()),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.OccurredAt(),
			Type:         string(e.Kind()),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", e.Kind(), err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			slog.Warn("close RabbitMQ channel", "err", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close RabbitMQ connection: %w", err)
		}
	}
	return nil
}
