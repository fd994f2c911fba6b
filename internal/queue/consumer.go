// Package queue carries reservation notifications over RabbitMQ.  Delivery
// is at-least-once: a message is acknowledged only after its handler
// succeeded or after it was re-published for another attempt.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one event.  Returning an error schedules a retry.
type Handler interface {
	Handle(ctx context.Context, ev NotificationEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev NotificationEvent) error

func (f HandlerFunc) Handle(ctx context.Context, ev NotificationEvent) error { return f(ctx, ev) }

// ConsumerOptions configure a Consumer.
type ConsumerOptions struct {
	URL         string
	Queue       string
	Prefetch    int
	MaxAttempts int
}

// Consumer reads the notification queue with manual acks and reconnects
// with exponential backoff (capped at 30s) until its context ends.
type Consumer struct {
	opts    ConsumerOptions
	handler Handler
	log     *zap.Logger
}

func NewConsumer(opts ConsumerOptions, h Handler, log *zap.Logger) *Consumer {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{opts: opts, handler: h, log: log}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.opts.URL)
		if err != nil {
			c.log.Warn("notification consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("notification consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.opts.Prefetch, 0, false); err != nil {
		c.log.Warn("notification consumer: set QoS failed", zap.Error(err))
	}
	if _, err := declare(ch, c.opts.Queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.opts.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, ch, d)
		}
	}
}

// Outcome is what happens to a delivery after its handler ran.
type Outcome int

const (
	OutcomeAck     Outcome = iota // handled
	OutcomeRetry                  // re-publish with attempt+1, then ack
	OutcomeDiscard                // reject without requeue
)

// Decide maps a handler result onto an Outcome.
func Decide(handleErr error, attempt, maxAttempts int) Outcome {
	switch {
	case handleErr == nil:
		return OutcomeAck
	case errors.Is(handleErr, ErrMalformed):
		return OutcomeDiscard
	case attempt >= maxAttempts:
		return OutcomeDiscard
	}
	return OutcomeRetry
}

// ErrMalformed marks a delivery whose body cannot be decoded.
var ErrMalformed = errors.New("malformed notification")

func decode(body []byte) (NotificationEvent, error) {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.ReservationID == 0 || ev.Kind == "" {
		return ev, fmt.Errorf("%w: missing kind or reservation id", ErrMalformed)
	}
	return ev, nil
}

// AttemptOf reads the attempt header, defaulting to 1.
func AttemptOf(h amqp.Table) int {
	switch v := h[HeaderAttempt].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

func (c *Consumer) deliver(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	attempt := AttemptOf(d.Headers)
	ev, err := decode(d.Body)
	if err == nil {
		err = c.handler.Handle(ctx, ev)
	}
	log := c.log.With(zap.String("kind", string(ev.Kind)), zap.Uint64("reservation_id", ev.ReservationID), zap.Int("attempt", attempt))

	switch Decide(err, attempt, c.opts.MaxAttempts) {
	case OutcomeAck:
		_ = d.Ack(false)
	case OutcomeDiscard:
		log.Error("notification dropped", zap.Error(err))
		_ = d.Nack(false, false)
	case OutcomeRetry:
		log.Warn("notification failed, retrying", zap.Error(err))
		if !sleep(ctx, retryDelay(attempt)) {
			_ = d.Nack(false, true)
			return
		}
		if perr := ch.PublishWithContext(ctx, "", c.opts.Queue, false, false, message(d.Body, attempt+1)); perr != nil {
			log.Warn("notification re-publish failed, requeueing", zap.Error(perr))
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	}
}

func retryDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * 500 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
