// Package amqp publishes and consumes transaction events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budget/internal/core"
	"budget/internal/log"
)

const (
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client owns one connection and channel bound to a durable direct exchange
// and queue. The routing key is the queue name.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials once and declares the topology.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect dials with capped exponential backoff until it succeeds, the
// attempts run out (maxAttempts <= 0 means no limit) or ctx is done.
func Connect(ctx context.Context, url, exchangeName, queueName string, maxAttempts int, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	for attempt := 0; ; attempt++ {
		c, err := NewClient(url, exchangeName, queueName, logger)
		if err == nil {
			return c, nil
		}
		if maxAttempts > 0 && attempt+1 >= maxAttempts {
			return nil, fmt.Errorf("connect after %d attempts: %w", attempt+1, err)
		}
		wait := exponentialBackoff(attempt)
		logger.WarnContext(ctx, "AMQP connection failed, retrying",
			log.FieldError, err,
			"attempt", attempt+1,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A reconnect replaces handles that may still be half open.
	if err := closeHandles(c.swapLocked(conn, channel)); err != nil {
		c.logger.Debug("Closing previous AMQP connection", log.FieldError, err)
	}
	return nil
}

// swapLocked installs conn and channel and returns the ones they replace.
func (c *Client) swapLocked(conn *amqp091.Connection, channel *amqp091.Channel) (*amqp091.Connection, *amqp091.Channel) {
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel = conn, channel
	return oldConn, oldChannel
}

// closeHandles closes the channel then the connection. Handles that are
// already closed are not an error.
func closeHandles(conn *amqp091.Connection, channel *amqp091.Channel) error {
	if channel != nil {
		if err := channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			if conn != nil {
				conn.Close()
			}
			return err
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishTransactionAdded sends a persistent transaction.added event. A
// dropped connection is re-dialled once before giving up.
func (c *Client) PublishTransactionAdded(ctx context.Context, tx core.Transaction, version uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := NewTransactionAddedMessage(tx, version).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, body)
	if isConnectionError(err) {
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting", log.FieldError, err)
		if rerr := c.connect(); rerr != nil {
			return fmt.Errorf("publish message: %w (reconnect: %v)", err, rerr)
		}
		err = c.publish(ctx, body)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "Published transaction event",
		log.FieldOperation, log.OpPublish,
		log.FieldTxID, tx.ID,
		log.FieldVersion, version,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Handler processes one decoded event. Returning an error requeues it.
type Handler func(context.Context, *TransactionAddedMessage) error

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

// ConsumeTransactionAdded blocks delivering events to handler until ctx is
// done or the delivery channel closes.
func (c *Client) ConsumeTransactionAdded(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming transaction events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			switch c.handle(ctx, delivery.Body, handler) {
			case ack:
				delivery.Ack(false)
			case requeue:
				delivery.Nack(false, true)
			case drop:
				delivery.Nack(false, false)
			}
		}
	}
}

func (c *Client) handle(ctx context.Context, body []byte, handler Handler) outcome {
	msg, err := TransactionAddedMessageFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Discarding malformed message", log.FieldError, err)
		return drop
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldError, err,
			log.FieldTxID, msg.Transaction.ID,
			log.FieldVersion, msg.Version)
		return requeue
	}

	c.logger.DebugContext(ctx, "Processed transaction event",
		log.FieldTxID, msg.Transaction.ID,
		log.FieldVersion, msg.Version)
	return ack
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return closeHandles(c.swapLocked(nil, nil))
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := baseBackoff << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "use of closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
