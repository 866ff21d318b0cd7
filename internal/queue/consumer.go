package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/config"
)

// Consumer drains the booking event queue and appends one line per event
// to <LogDir>/booking.log.
type Consumer struct {
	cfg config.BrokerConfig
	log zerolog.Logger
}

func NewConsumer(cfg config.BrokerConfig, log zerolog.Logger) *Consumer {
	return &Consumer{cfg: cfg, log: log}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Connection failures are retried with exponential backoff
// capped at 30s; a malformed message is rejected without requeue so the
// loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info().Str("queue", c.cfg.Queue).Msg("consuming booking events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.log.Error().Err(err).Msg("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == "" {
		return errors.New("event missing type or booking_id")
	}
	if err := os.MkdirAll(c.cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.cfg.LogDir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as one human-friendly log line.
func FormatLine(ev BookingEvent) string {
	return fmt.Sprintf("[%s] %s | booking_id=%s | listing_id=%s | listing=%q | customer_id=%s | provider_id=%s | actor_id=%s | status=%s | date=%s | hours=%d | customer_completed=%t | provider_completed=%t\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, ev.ListingID, ev.ListingTitle,
		ev.CustomerID, ev.ProviderID, ev.ActorID, ev.Status, ev.Date, ev.Hours,
		ev.CustomerCompleted, ev.ProviderCompleted)
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
