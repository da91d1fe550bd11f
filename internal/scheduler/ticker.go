// Package scheduler provides the fixed-cadence trigger that drives capture
// attempts.
package scheduler

import (
	"sync"
	"time"
)

// Ticker fires a callback at a fixed interval until stopped. Start and Stop
// are idempotent; restarting replaces the running timer rather than adding a
// second one.
type Ticker struct {
	mu      sync.Mutex
	quit    chan struct{}
	running bool
}

// New returns a stopped Ticker.
func New() *Ticker {
	return &Ticker{}
}

// Start begins firing onTick every interval. The first call happens one
// interval after Start. Calling Start while running restarts the cadence.
func (t *Ticker) Start(interval time.Duration, onTick func(time.Time)) {
	if interval <= 0 || onTick == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	quit := make(chan struct{})
	t.quit = quit
	t.running = true

	// Pass quit to the goroutine so it never reads t.quit without the lock.
	go run(interval, onTick, quit)
}

// Stop cancels any pending firing. Stopping a stopped Ticker does nothing.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether the ticker is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) stopLocked() {
	if !t.running {
		return
	}
	close(t.quit)
	t.quit = nil
	t.running = false
}

func run(interval time.Duration, onTick func(time.Time), quit <-chan struct{}) {
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-quit:
			return
		case now := <-tk.C:
			// Stop may have raced the tick; quit wins.
			select {
			case <-quit:
				return
			default:
			}
			onTick(now)
		}
	}
}
