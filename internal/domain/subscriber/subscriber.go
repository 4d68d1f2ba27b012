package subscriber

import (
	"database/sql"
	"time"

	"daily365_bot/internal/domain/clock"
)

const (
	TotalSlots      = 365   // Length of the curriculum
	DefaultTimezone = "UTC" // Assigned on first contact
)

// Subscriber is one recipient advancing through the daily curriculum.
type Subscriber struct {
	ID               int64
	TelegramID       int64
	Username         sql.NullString // Telegram usernames are optional
	Timezone         string         // Free-form IANA name, resolved (with UTC fallback) at evaluation time
	CurrentSlot      int            // 1..TotalSlots
	LastDeliveryDate sql.NullTime   // Date of the most recent completed delivery cycle
	IsActive         bool
	StartedAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NextSlot returns the slot that follows n, wrapping TotalSlots back to 1.
// Out-of-range values restart the curriculum.
func NextSlot(n int) int {
	if n < 1 || n >= TotalSlots {
		return 1
	}
	return n + 1
}

// DeliveredOn reports whether the last delivery cycle completed on the given calendar date.
func (s *Subscriber) DeliveredOn(date time.Time) bool {
	if !s.LastDeliveryDate.Valid {
		return false
	}
	return clock.SameDate(s.LastDeliveryDate.Time, date)
}

// DisplayName is used in logs and admin output.
func (s *Subscriber) DisplayName() string {
	if s.Username.Valid && s.Username.String != "" {
		return "@" + s.Username.String
	}
	return "user"
}
