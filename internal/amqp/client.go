package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

// Client publishes and consumes mutation events on a topic exchange. Each
// event is routed as "<kind>.<operation>"; the client's queue takes them all.
type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
}

// prefetch bounds the unacknowledged deliveries a consumer holds.
const prefetch = 16

func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{conn: conn, channel: ch, exchange: exchange, queue: queue}
	if err := c.declare(); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}
	return c, nil
}

// DialWithRetry keeps trying NewClient until it succeeds, ctx is done or
// maxElapsed passes. Brokers usually start after the services that use them.
func DialWithRetry(ctx context.Context, url, exchangeName, queueName string, maxElapsed time.Duration) (*Client, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = maxElapsed

	var client *Client
	err := backoff.RetryNotify(func() error {
		c, err := NewClient(url, exchangeName, queueName)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.WarnContext(ctx, "AMQP not reachable, retrying", "error", err, "next_in", next)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) declare() error {
	if err := c.channel.ExchangeDeclare(c.exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange %s: %w", c.exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue %s: %w", c.queue, err)
	}
	if err := c.channel.QueueBind(c.queue, "#", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", c.queue, c.exchange, err)
	}
	return nil
}

// RoutingKey is the topic an event is published under.
func RoutingKey(msg *MutationEvent) string {
	return msg.Kind + "." + msg.Operation
}

// PublishMutation publishes a mutation event as a persistent message.
func (c *Client) PublishMutation(ctx context.Context, msg *MutationEvent) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, RoutingKey(msg), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    msg.Timestamp,
		Type:         RoutingKey(msg),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published mutation event",
		"kind", msg.Kind,
		"operation", msg.Operation,
		"item_id", msg.ItemID,
		"exchange", c.exchange)

	return nil
}

// ConsumeMutations delivers events to handler until ctx is done. Malformed
// messages are dropped; handler errors requeue the message.
func (c *Client) ConsumeMutations(ctx context.Context, handler func(context.Context, *MutationEvent) error) error {
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming mutation events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			settle(ctx, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery the consumer loop needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *MutationEvent) error) {
	msg, err := MutationEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed mutation event", "error", err)
		_ = ack.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Mutation event handler failed, requeueing",
			"error", err,
			"kind", msg.Kind,
			"operation", msg.Operation)
		_ = ack.Nack(false, true)
		return
	}

	_ = ack.Ack(false)
	slog.DebugContext(ctx, "Processed mutation event", "kind", msg.Kind, "operation", msg.Operation)
}

// Close closes the channel and then the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
