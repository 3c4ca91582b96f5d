package chess

import (
	"fmt"
	"time"
)

// Clock tracks the countdown for a single player. Remaining time is a pure
// function of (remaining, runningSince, now): nothing ticks in the
// background, callers pass the server time into every query. The zero
// runningSince means the clock is paused.
//
// Clock carries no lock of its own; the owning session serializes access.
type Clock struct {
	remaining    time.Duration
	runningSince time.Time
	hasMoved     bool
}

// NewClock creates a paused clock with the given initial time budget.
func NewClock(initial time.Duration) *Clock {
	return &Clock{remaining: initial}
}

// Start begins the countdown at the given server time. Starting a running
// clock is a no-op.
func (c *Clock) Start(now time.Time) {
	if c.Running() {
		return
	}
	c.runningSince = now
}

// Stop pauses the countdown, folding the elapsed time into the stored
// remaining budget. Stopping a paused clock is a no-op.
func (c *Clock) Stop(now time.Time) {
	if !c.Running() {
		return
	}
	c.remaining -= now.Sub(c.runningSince)
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.runningSince = time.Time{}
}

// Running reports whether the countdown is currently live.
func (c *Clock) Running() bool {
	return !c.runningSince.IsZero()
}

// Remaining returns the effective time left at the given server time,
// clamped at zero.
func (c *Clock) Remaining(now time.Time) time.Duration {
	remaining := c.remaining
	if c.Running() {
		remaining -= now.Sub(c.runningSince)
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Expired reports whether the player's time budget has run out.
func (c *Clock) Expired(now time.Time) bool {
	return c.Remaining(now) <= 0
}

// MarkMoved records that the player has completed their first move. Until
// then the player is in the first-move grace period and their clock has
// never run.
func (c *Clock) MarkMoved() {
	c.hasMoved = true
}

// HasMoved reports whether the player has made at least one move.
func (c *Clock) HasMoved() bool {
	return c.hasMoved
}

// FormatClockTime formats a duration in milliseconds to a user-friendly
// string (e.g., "1:30"). Sub-ten-second values show a tenths digit.
func FormatClockTime(timeMs int64) string {
	if timeMs < 0 {
		timeMs = 0
	}

	totalSeconds := timeMs / 1000
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60

	if timeMs < 10000 {
		tenths := (timeMs % 1000) / 100
		return fmt.Sprintf("%d.%d", totalSeconds, tenths)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
