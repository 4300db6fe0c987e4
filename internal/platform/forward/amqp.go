package forward

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var ErrNotConfirmed = errors.New("forward: broker did not confirm publish")

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes events to a durable queue with publisher confirms.
type AMQP struct {
	conn     *amqp.Connection
	ch       channel
	queue    string
	confirms <-chan amqp.Confirmation
	logger   zerolog.Logger
	mu       sync.Mutex
}

// DialAMQP connects to url, declares queue and enables confirms.
func DialAMQP(url, queue string, logger zerolog.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("forward: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("forward: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("forward: declare queue %s: %w", queue, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("forward: enable confirms: %w", err)
	}
	a := newAMQP(ch, ch.NotifyPublish(make(chan amqp.Confirmation, 1)), queue, logger)
	a.conn = conn
	return a, nil
}

func newAMQP(ch channel, confirms <-chan amqp.Confirmation, queue string, logger zerolog.Logger) *AMQP {
	return &AMQP{
		ch:       ch,
		queue:    queue,
		confirms: confirms,
		logger:   logger.With().Str("component", "forward-amqp").Str("queue", queue).Logger(),
	}
}

// Publish sends e as a persistent message and waits for the confirm.
func (a *AMQP) Publish(ctx context.Context, e Event) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("forward: encode event: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    e.ID,
		Type:         e.MessageType + "^" + e.TriggerEvent,
		Timestamp:    e.ReceivedAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}
	if err := a.ch.PublishWithContext(ctx, "", a.queue, false, false, msg); err != nil {
		return fmt.Errorf("forward: publish to %s: %w", a.queue, err)
	}

	select {
	case c, ok := <-a.confirms:
		if !ok || !c.Ack {
			a.logger.Error().Str("control_id", e.ControlID).Msg("publish not confirmed")
			return ErrNotConfirmed
		}
	case <-ctx.Done():
		return fmt.Errorf("forward: publish to %s: %w", a.queue, ctx.Err())
	}
	return nil
}

// Close closes the channel and the connection.
func (a *AMQP) Close() error {
	err := a.ch.Close()
	if a.conn != nil {
		err = errors.Join(err, a.conn.Close())
	}
	return err
}
