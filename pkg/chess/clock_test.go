package chess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockRemainingWhilePaused(t *testing.T) {
	now := time.Now()
	c := NewClock(5 * time.Minute)

	assert.False(t, c.Running())
	assert.Equal(t, 5*time.Minute, c.Remaining(now))
	// A paused clock does not lose time.
	assert.Equal(t, 5*time.Minute, c.Remaining(now.Add(time.Hour)))
}

func TestClockCountsDownWhileRunning(t *testing.T) {
	now := time.Now()
	c := NewClock(5 * time.Minute)

	c.Start(now)
	assert.True(t, c.Running())
	assert.Equal(t, 5*time.Minute-10*time.Second, c.Remaining(now.Add(10*time.Second)))

	c.Stop(now.Add(10 * time.Second))
	assert.False(t, c.Running())
	assert.Equal(t, 5*time.Minute-10*time.Second, c.Remaining(now.Add(time.Hour)))
}

func TestClockRemainingNeverNegative(t *testing.T) {
	now := time.Now()
	c := NewClock(3 * time.Second)

	c.Start(now)
	assert.Equal(t, time.Duration(0), c.Remaining(now.Add(time.Minute)))
	assert.True(t, c.Expired(now.Add(time.Minute)))

	c.Stop(now.Add(time.Minute))
	assert.Equal(t, time.Duration(0), c.Remaining(now.Add(time.Minute)))
}

func TestClockStartIsIdempotent(t *testing.T) {
	now := time.Now()
	c := NewClock(time.Minute)

	c.Start(now)
	// A second Start must not re-anchor the countdown.
	c.Start(now.Add(30 * time.Second))
	assert.Equal(t, 20*time.Second, c.Remaining(now.Add(40*time.Second)))
}

func TestClockStopIsIdempotent(t *testing.T) {
	now := time.Now()
	c := NewClock(time.Minute)

	c.Start(now)
	c.Stop(now.Add(5 * time.Second))
	c.Stop(now.Add(50 * time.Second))
	assert.Equal(t, 55*time.Second, c.Remaining(now.Add(time.Hour)))
}

func TestClockMonotonicWhileRunning(t *testing.T) {
	now := time.Now()
	c := NewClock(time.Minute)
	c.Start(now)

	prev := c.Remaining(now)
	for i := 1; i <= 10; i++ {
		cur := c.Remaining(now.Add(time.Duration(i) * 7 * time.Second))
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestClockMarkMoved(t *testing.T) {
	c := NewClock(time.Minute)
	assert.False(t, c.HasMoved())
	c.MarkMoved()
	assert.True(t, c.HasMoved())
}

func TestFormatClockTime(t *testing.T) {
	tests := []struct {
		name   string
		timeMs int64
		want   string
	}{
		{"minutes and seconds", 90_000, "1:30"},
		{"zero padded seconds", 305_000, "5:05"},
		{"under ten seconds shows tenths", 9_500, "9.5"},
		{"negative clamps to zero", -500, "0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatClockTime(tt.timeMs))
		})
	}
}
