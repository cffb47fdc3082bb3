package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the exchange events are published to when none is configured.
const DefaultExchange = "ticketbot.events"

// AMQPPublisher publishes events as persistent JSON messages to a topic exchange, routed by event type.
type AMQPPublisher struct {
	// l is the logger.
	l *slog.Logger

	// exchange is the name of the topic exchange.
	exchange string

	// mu guards ch, an AMQP channel must not be used concurrently.
	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(l *slog.Logger, uri, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("error connecting to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error opening amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error declaring exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		l:        l.With(slog.String("exchange", exchange)),
		exchange: exchange,
		conn:     conn,
		ch:       ch,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e *Event) error {
	msg, err := newMessage(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, msg); err != nil {
		return fmt.Errorf("error publishing %s event: %w", e.Type, err)
	}

	p.l.Debug("Published event",
		slog.String("type", string(e.Type)),
		slog.String(logging.KeyChannelID, e.ChannelID),
	)
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.l.Warn("Error closing amqp channel", slog.String(logging.KeyError, err.Error()))
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("error closing amqp connection: %w", err)
	}
	return nil
}

func newMessage(e *Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("error marshalling event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.TicketID + ":" + string(e.Type),
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	}, nil
}
