package epoch

import (
	"context"
	"time"
)

// Epoch runs f on every tick of interval, and once more for every Trigger
// call that arrives while it is idle. Cancelling the context stops it.
type Epoch struct {
	f        func()
	c        chan struct{}
	interval time.Duration
}

func NewEpoch(f func(), interval time.Duration) *Epoch {
	return &Epoch{
		f:        f,
		c:        make(chan struct{}, 1),
		interval: interval,
	}
}

// Trigger asks for an extra run without waiting for it. Triggers that arrive
// while one is already pending are merged into it.
func (e *Epoch) Trigger() bool {
	select {
	case e.c <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *Epoch) StartEpochRoutine(ctx context.Context) {
	var tick <-chan time.Time
	if e.interval > 0 {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			e.f()
		case <-e.c:
			e.f()
		}
	}
}
