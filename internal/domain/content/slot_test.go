package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSendTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    SendTime
		wantErr bool
	}{
		{name: "empty gives default", raw: "", want: DefaultSendTime},
		{name: "morning", raw: "09:00", want: SendTime{Hour: 9}},
		{name: "single digit hour", raw: "7:05", want: SendTime{Hour: 7, Minute: 5}},
		{name: "end of day", raw: "23:59", want: SendTime{Hour: 23, Minute: 59}},
		{name: "padded", raw: " 14:30 ", want: SendTime{Hour: 14, Minute: 30}},
		{name: "hour out of range", raw: "24:00", wantErr: true},
		{name: "minute out of range", raw: "12:60", wantErr: true},
		{name: "negative", raw: "-1:00", wantErr: true},
		{name: "no colon", raw: "0900", wantErr: true},
		{name: "seconds", raw: "09:00:00", wantErr: true},
		{name: "letters", raw: "ab:cd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSendTime(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSendTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendTime_String(t *testing.T) {
	assert.Equal(t, "09:00", DefaultSendTime.String())
	assert.Equal(t, "07:05", SendTime{Hour: 7, Minute: 5}.String())
}

func TestSendTime_Matches(t *testing.T) {
	st := SendTime{Hour: 9, Minute: 0}

	assert.True(t, st.Matches(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, st.Matches(time.Date(2024, 1, 1, 9, 0, 59, 0, time.UTC)))
	assert.False(t, st.Matches(time.Date(2024, 1, 1, 9, 1, 0, 0, time.UTC)))
	assert.False(t, st.Matches(time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)))
}

func TestSlot_IsEmpty(t *testing.T) {
	assert.True(t, (&Slot{}).IsEmpty())
	assert.True(t, (&Slot{Body: " \n\t"}).IsEmpty())
	assert.False(t, (&Slot{Body: "Day one"}).IsEmpty())
}
