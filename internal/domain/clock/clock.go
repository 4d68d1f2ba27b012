// internal/domain/clock/clock.go
package clock

import (
	"strings"
	"time"
)

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Used by tests and one-off runs.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// ResolveLocation loads an IANA zone by name. Empty or unknown names yield UTC.
func ResolveLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsKnownLocation reports whether name resolves to a real zone.
func IsKnownLocation(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// NowIn returns the current time of c expressed in the named zone (UTC fallback).
func NowIn(c Clock, zone string) time.Time {
	return c.Now().In(ResolveLocation(zone))
}

// DateOf strips the time-of-day, keeping the calendar date t has in its own location.
// The result is midnight UTC so it compares cleanly with DATE columns.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date (each in its own location).
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
