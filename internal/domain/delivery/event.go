package delivery

import (
	"context"
	"time"
)

// EventType names what happened to a subscriber during a delivery attempt.
type EventType string

const (
	EventDelivered        EventType = "delivery.delivered"
	EventDeactivated      EventType = "delivery.deactivated"
	EventTransientFailure EventType = "delivery.transient_failure"
)

// Event is emitted after every delivery attempt.
type Event struct {
	Type         EventType `json:"type"`
	SubscriberID int64     `json:"subscriber_id"`
	TelegramID   int64     `json:"telegram_id"`
	Slot         int       `json:"slot"`
	NextSlot     int       `json:"next_slot,omitempty"`
	Date         string    `json:"date"` // YYYY-MM-DD, process calendar date
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventPublisher ships delivery events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
