package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
)

const dialTimeout = 2 * time.Second

// ErrBrokerUnavailable is returned while the circuit breaker is open.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Publisher sends BookingEvents to a durable queue on the default exchange.
// The connection is opened lazily and re-dialed after a failure, so a
// broker outage at startup does not prevent the API from serving.  After
// repeated failures the breaker opens and publishes are dropped until the
// timeout elapses.
type Publisher struct {
	cfg     config.BrokerConfig
	log     zerolog.Logger
	breaker *gobreaker.CircuitBreaker

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for cfg.Queue.  No connection is made here.
func NewPublisher(cfg config.BrokerConfig, log zerolog.Logger) *Publisher {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 3
	}
	p := &Publisher{cfg: cfg, log: log}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "broker-" + cfg.Queue,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("circuit_breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return p
}

// BreakerState reports the breaker state: closed, half-open or open.
func (p *Publisher) BreakerState() string { return p.breaker.State().String() }

// PublishBookingEvent marshals ev and publishes it as a persistent message.
// Errors are logged and returned; callers are free to ignore them.
func (p *Publisher) PublishBookingEvent(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("type", ev.Type).Msg("marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publish(ctx, pub)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		monitoring.RecordEventPublished(ev.Type, "skipped")
		return ErrBrokerUnavailable
	case err != nil:
		p.log.Warn().Err(err).Str("type", ev.Type).Msg("publish failed")
		monitoring.RecordEventPublished(ev.Type, "error")
		return err
	}
	monitoring.RecordEventPublished(ev.Type, "ok")
	return nil
}

func (p *Publisher) publish(ctx context.Context, pub amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",          // default exchange
		p.cfg.Queue, // routing key = queue name
		false,       // mandatory
		false,       // immediate
		pub,
	); err != nil {
		p.reset()
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// channel returns an open channel, dialing when needed.  p.mu must be held.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	// Publishes run on the request path, so the dial is kept short.
	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Dial:      amqp.DefaultDial(dialTimeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
