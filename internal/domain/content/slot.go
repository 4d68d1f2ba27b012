package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxMessageLength is the Telegram limit for a single text message.
const MaxMessageLength = 4096

// SendTime is a local time-of-day at which a slot fires.
type SendTime struct {
	Hour   int
	Minute int
}

// DefaultSendTime applies to slots whose send time was never set.
var DefaultSendTime = SendTime{Hour: 9, Minute: 0}

// ErrInvalidSendTime is returned for anything that is not a valid HH:MM.
var ErrInvalidSendTime = fmt.Errorf("invalid send time, expected HH:MM")

// ParseSendTime parses "HH:MM". An empty string yields DefaultSendTime.
func ParseSendTime(raw string) (SendTime, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSendTime, nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return SendTime{}, ErrInvalidSendTime
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return SendTime{}, ErrInvalidSendTime
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return SendTime{}, ErrInvalidSendTime
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return SendTime{}, ErrInvalidSendTime
	}
	return SendTime{Hour: hour, Minute: minute}, nil
}

func (st SendTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// Matches reports whether t (already in the subscriber's zone) falls in this minute.
// Seconds are ignored.
func (st SendTime) Matches(t time.Time) bool {
	return t.Hour() == st.Hour && t.Minute() == st.Minute
}

// Slot is one day of the curriculum.
type Slot struct {
	Number    int // 1..365
	Body      string
	SendTime  SendTime
	UpdatedAt time.Time
}

// IsEmpty reports whether the slot has nothing to send yet.
func (s *Slot) IsEmpty() bool {
	return strings.TrimSpace(s.Body) == ""
}
