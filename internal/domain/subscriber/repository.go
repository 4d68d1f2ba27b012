package subscriber

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving Subscriber entities.
type Repository interface {
	Create(ctx context.Context, s *Subscriber) error
	GetByID(ctx context.Context, id int64) (*Subscriber, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Subscriber, error)
	ListActive(ctx context.Context) ([]*Subscriber, error)
	ListAll(ctx context.Context) ([]*Subscriber, error) // For admin purposes
	Count(ctx context.Context) (total int, active int, err error)

	// RecordDelivery writes last_delivery_date and the advanced slot in one statement.
	// The write only applies while current_slot still equals fromSlot.
	RecordDelivery(ctx context.Context, id int64, fromSlot int, date time.Time) error
	Deactivate(ctx context.Context, id int64) error
	// Reactivate flips the active flag only; progress is preserved.
	Reactivate(ctx context.Context, id int64) error
	UpdateTimezone(ctx context.Context, id int64, timezone string) error
	UpdateUsername(ctx context.Context, id int64, username string) error
}
