package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Custom errors
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")
var ErrDuplicateTelegramID = fmt.Errorf("subscriber with this Telegram ID already exists")
var ErrStaleSubscriber = fmt.Errorf("subscriber changed since it was read")
var ErrSlotNotFound = fmt.Errorf("content slot not found")
var ErrSettingNotFound = fmt.Errorf("setting not found")

// isUniqueViolation recognises unique constraint errors from both supported drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
