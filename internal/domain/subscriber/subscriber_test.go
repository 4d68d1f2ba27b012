package subscriber

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextSlot(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "first slot", in: 1, want: 2},
		{name: "middle", in: 180, want: 181},
		{name: "second to last", in: 364, want: 365},
		{name: "wraps at the end", in: 365, want: 1},
		{name: "zero restarts", in: 0, want: 1},
		{name: "beyond range restarts", in: 400, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSlot(tt.in))
		})
	}
}

func TestNextSlot_StaysInRange(t *testing.T) {
	slot := 1
	for i := 0; i < 3*TotalSlots; i++ {
		slot = NextSlot(slot)
		assert.GreaterOrEqual(t, slot, 1)
		assert.LessOrEqual(t, slot, TotalSlots)
	}
	assert.Equal(t, 1, slot)
}

func TestSubscriber_DeliveredOn(t *testing.T) {
	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	never := &Subscriber{}
	assert.False(t, never.DeliveredOn(today))

	s := &Subscriber{LastDeliveryDate: sql.NullTime{Time: today, Valid: true}}
	assert.True(t, s.DeliveredOn(today.Add(15*time.Hour)))
	assert.False(t, s.DeliveredOn(today.AddDate(0, 0, 1)))
}
