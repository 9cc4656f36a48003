package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/websocket"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the publisher uses
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Message is the body of every published rollover event
type Message struct {
	UserID uuid.UUID       `json:"userId"`
	Event  websocket.Event `json:"event"`
}

// Publisher forwards rollover events to a RabbitMQ topic exchange, routed by event type
type Publisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
}

// NewPublisher dials url and declares the exchange
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, exchange)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

// Publish implements websocket.EventPublisher. Failures are logged, never returned.
func (p *Publisher) Publish(userID uuid.UUID, event websocket.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.PublishWithContext(ctx, userID, event); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Str("event_type", event.Type).Msg("Failed to publish AMQP event")
	}
}

// PublishWithContext sends one event and reports the broker error
func (p *Publisher) PublishWithContext(ctx context.Context, userID uuid.UUID, event websocket.Event) error {
	body, err := json.Marshal(Message{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	log.Debug().Str("exchange", p.exchange).Str("routing_key", event.Type).Msg("Published AMQP event")
	return nil
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
