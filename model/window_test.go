package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsWithinActiveWindow(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	tests := []struct {
		name     string
		from     *time.Time
		to       *time.Time
		now      time.Time
		expected bool
	}{
		{"both bounds nil", nil, nil, now, false},
		{"missing from", nil, &to, now, false},
		{"missing to", &from, nil, now, false},
		{"inside", &from, &to, now, true},
		{"at from boundary", &from, &to, from, true},
		{"at to boundary", &from, &to, to, true},
		{"before from", &from, &to, from.Add(-time.Nanosecond), false},
		{"after to", &from, &to, to.Add(time.Nanosecond), false},
		{"degenerate single instant", &now, &now, now, true},
		{"inverted window", &to, &from, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsWithinActiveWindow(tt.from, tt.to, tt.now))
		})
	}
}

func TestMessage_IsWithinActiveWindow(t *testing.T) {
	now := time.Now()
	msg := NewMessage("m1", LocalizedText{HR: "Naslov"}, LocalizedText{HR: "Tekst"}, []Tag{TagEmergency}, now)
	assert.False(t, msg.IsWithinActiveWindow(now))

	msg = msg.WithWindow(TimePtr(now.Add(-time.Minute)), TimePtr(now.Add(time.Minute)))
	assert.True(t, msg.IsWithinActiveWindow(now))
}
