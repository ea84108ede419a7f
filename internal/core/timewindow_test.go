package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInWindow(t *testing.T) {
	from := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before window", from.Add(-time.Second), false},
		{"at from bound", from, true},
		{"mid window", from.Add(2 * time.Hour), true},
		{"at to bound", to, true},
		{"after window", to.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InWindow(tt.now, from, to))
		})
	}
}

func TestExpired(t *testing.T) {
	expiry := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	assert.False(t, Expired(expiry.Add(-time.Second), expiry))
	assert.False(t, Expired(expiry, expiry))
	assert.True(t, Expired(expiry.Add(time.Second), expiry))
}

func TestLateMinutes(t *testing.T) {
	deadline := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry time.Time
		want  int
	}{
		{"early return", deadline.Add(-5 * time.Minute), 0},
		{"exact deadline", deadline, 0},
		{"twelve minutes late", deadline.Add(12 * time.Minute), 12},
		{"partial minute floors", deadline.Add(20*time.Minute + 30*time.Second), 20},
		{"under a minute late", deadline.Add(45 * time.Second), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LateMinutes(tt.entry, deadline))
		})
	}
}
