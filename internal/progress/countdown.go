package progress

import (
	"sync"
	"time"
)

// Countdown is a cooperative periodic timer. It ticks every interval and
// calls onExpire exactly once when the remaining time reaches zero, unless
// it was stopped first.
type Countdown struct {
	mu        sync.Mutex
	remaining time.Duration
	stopped   bool
	expired   bool
	stop      chan struct{}
}

// StartCountdown begins counting down total in steps of tick. onTick may be nil.
func StartCountdown(total, tick time.Duration, onTick func(remaining time.Duration), onExpire func()) *Countdown {
	c := &Countdown{
		remaining: total,
		stop:      make(chan struct{}),
	}
	go c.run(tick, onTick, onExpire)
	return c
}

func (c *Countdown) run(tick time.Duration, onTick func(time.Duration), onExpire func()) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			c.remaining -= tick
			if c.remaining <= 0 {
				c.remaining = 0
				c.expired = true
				c.mu.Unlock()
				if onExpire != nil {
					onExpire()
				}
				return
			}
			left := c.remaining
			c.mu.Unlock()
			if onTick != nil {
				onTick(left)
			}
		}
	}
}

// Stop cancels the countdown. It reports false if the countdown had already
// expired or been stopped. Stop does not wait for a running callback.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.expired {
		return false
	}
	c.stopped = true
	close(c.stop)
	return true
}

// Remaining returns the time left.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
