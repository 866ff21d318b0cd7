package service

import (
	"context"

	"github.com/iliyamo/service-marketplace/internal/queue"
)

// EventPublisher delivers booking events.  *queue.Publisher implements it.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error
}

// NoopPublisher drops every event.  It is used when the broker is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingEvent(context.Context, queue.BookingEvent) error { return nil }

var _ EventPublisher = (*queue.Publisher)(nil)
