package queuesync

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDriftTolerance is how far, in seconds, the local countdown may
// wander from the server before it is snapped back.
const DefaultDriftTolerance = 2

// Countdown is the locally ticked remaining time for the head of the queue.
// It is display only; it never decides ordering or triggers server changes.
type Countdown struct {
	clock     clockwork.Clock
	tolerance int

	mu          sync.Mutex
	secondsLeft int
}

func NewCountdown(clock clockwork.Clock, tolerance int) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if tolerance < 0 {
		tolerance = 0
	}
	return &Countdown{clock: clock, tolerance: tolerance}
}

func (c *Countdown) SecondsLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secondsLeft
}

// Tick decrements by one second, stopping at zero.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.secondsLeft > 0 {
		c.secondsLeft--
	}
	return c.secondsLeft
}

// Resync overwrites the local value with the server's when they differ by
// more than the tolerance. Small drift is left alone to avoid visible jumps.
func (c *Countdown) Resync(server int) bool {
	if server < 0 {
		server = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	drift := server - c.secondsLeft
	if drift < 0 {
		drift = -drift
	}
	if drift <= c.tolerance {
		return false
	}
	c.secondsLeft = server
	return true
}

// Run ticks once per second until ctx is done. onTick may be nil.
func (c *Countdown) Run(ctx context.Context, onTick func(secondsLeft int)) error {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			left := c.Tick()
			if onTick != nil {
				onTick(left)
			}
		}
	}
}
