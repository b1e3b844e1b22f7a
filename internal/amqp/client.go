package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"wedplan/internal/budget"
	"wedplan/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures          = 5
	openTimeout          = 30 * time.Second
	maxBackoff           = 30 * time.Second
	maxReconnectAttempts = 5
	publishTimeout       = 5 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failMu       sync.Mutex
	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange, queue and binding.
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
	if _, err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect opens a fresh connection and channel. Callers hold c.mu or own c exclusively.
func (c *Client) connect() (*amqp091.Channel, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn = conn
	c.channel = ch
	return ch, nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key equals the queue name on the direct exchange
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel returns a live channel, reconnecting with backoff when needed.
func (c *Client) ensureChannel(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	var lastErr error
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		ch, err := c.connect()
		if err == nil {
			if attempt > 0 {
				c.lg().InfoContext(ctx, "Reconnected to broker", "attempts", attempt+1)
			}
			return ch, nil
		}
		lastErr = err
		wait := exponentialBackoff(attempt)
		c.lg().WarnContext(ctx, "Broker connection failed, retrying",
			log.FieldError, err, "attempt", attempt+1, "backoff", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("reconnect after %d attempts: %w", maxReconnectAttempts, lastErr)
}

// PublishLedgerChanged announces a ledger mutation.
func (c *Client) PublishLedgerChanged(ctx context.Context, userID, operation, itemID string) error {
	return c.publish(ctx, TypeLedgerChanged, LedgerChanged{UserID: userID, Operation: operation, ItemID: itemID})
}

// PublishBalanceDue announces an upcoming or overdue balance.
func (c *Client) PublishBalanceDue(ctx context.Context, b budget.BalanceDue) error {
	return c.publish(ctx, TypeBalanceDue, b)
}

func (c *Client) publish(ctx context.Context, msgType string, payload any) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping %s message", msgType)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel(ctx)
	if err != nil {
		c.recordFailure()
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		pubCtx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    env.ID,
			Type:         msgType,
			Timestamp:    env.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.lg().DebugContext(ctx, "Published message",
		log.FieldMsgType, msgType,
		log.FieldMessageID, env.ID,
		"exchange", c.exchangeName)
	return nil
}

// Consume delivers messages to h until ctx is cancelled, reconnecting when the
// broker drops the connection.
func (c *Client) Consume(ctx context.Context, h Handlers) error {
	attempt := 0
	for {
		delivered, err := c.consumeOnce(ctx, h)
		if ctx.Err() != nil {
			c.lg().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		attempt = reconnectAttempt(attempt, delivered)
		wait := exponentialBackoff(attempt)
		attempt++
		c.lg().WarnContext(ctx, "Consumer interrupted, reconnecting", log.FieldError, err, "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reconnectAttempt returns the backoff attempt to use after a consumer
// session ends. A session that handled at least one delivery was healthy, so
// the next reconnect starts again from the shortest wait.
func reconnectAttempt(attempt int, delivered bool) int {
	if delivered {
		return 0
	}
	return attempt
}

// consumeOnce runs one consumer session and reports whether it handled any
// delivery before ending.
func (c *Client) consumeOnce(ctx context.Context, h Handlers) (bool, error) {
	delivered := false
	ch, err := c.ensureChannel(ctx)
	if err != nil {
		return delivered, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return delivered, fmt.Errorf("set qos: %w", err)
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
		return delivered, fmt.Errorf("start consuming: %w", err)
	}

	c.lg().InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				c.mu.Lock()
				c.closeLocked()
				c.mu.Unlock()
				return delivered, errors.New("message channel closed")
			}
			c.handleDelivery(ctx, h, delivery)
			delivered = true
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, h Handlers, d amqp091.Delivery) {
	err := h.Dispatch(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.lg().ErrorContext(ctx, "Failed to ack message", log.FieldError, ackErr)
		}
	case errors.Is(err, ErrMalformed):
		c.lg().ErrorContext(ctx, "Dropping malformed message", log.FieldError, err, log.FieldMessageID, d.MessageId)
		_ = d.Nack(false, false)
	default:
		c.lg().ErrorContext(ctx, "Failed to handle message, requeueing", log.FieldError, err, log.FieldMessageID, d.MessageId)
		_ = d.Nack(false, true)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		if !c.conn.IsClosed() {
			err = c.conn.Close()
		}
		c.conn = nil
	}
	return err
}

// isCircuitOpen reports whether publishes should be refused. An open circuit
// moves to half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.lg().Warn("Circuit breaker opened", "failures", n)
		}
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s doubled per attempt, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
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
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) lg() *log.Logger {
	if c.logger == nil {
		return log.Discard()
	}
	return c.logger
}
