package engine

import (
	"sync"
	"time"
)

// clock measures playback time, excluding the time spent paused.
type clock struct {
	mu       *sync.Mutex
	start    time.Time
	pausedAt time.Time
	paused   time.Duration
}

func newClock(start time.Time) *clock {
	return &clock{mu: &sync.Mutex{}, start: start}
}

// elapsed returns the playback time at now. While paused it stands still.
func (c *clock) elapsed(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pausedAt.IsZero() {
		now = c.pausedAt
	}
	return now.Sub(c.start) - c.paused
}

func (c *clock) setPaused(now time.Time, paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case paused && c.pausedAt.IsZero():
		c.pausedAt = now
	case !paused && !c.pausedAt.IsZero():
		c.paused += now.Sub(c.pausedAt)
		c.pausedAt = time.Time{}
	}
}
