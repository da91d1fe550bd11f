package app

import (
	"context"
	"time"

	"github.com/jwulff/attend/internal/attendance"
)

// Source produces frames from the camera.
type Source interface {
	Probe() error
	Capture(ctx context.Context) (attendance.Frame, error)
}

// Scheduler fires onTick at a fixed cadence until stopped.
type Scheduler interface {
	Start(interval time.Duration, onTick func(time.Time))
	Stop()
}

// Lock guards exclusive use of the camera.
type Lock interface {
	Acquire() error
	Release() error
}

// loop owns everything that lives while the controller is armed: the
// scheduler, the camera lock and the context of the in-flight request.
// It is shared by every copy of the Model.
type loop struct {
	scheduler  Scheduler
	lock       Lock
	dispatcher *Dispatcher
	interval   time.Duration

	root     context.Context
	stopRoot context.CancelFunc
	ctx      context.Context
	cancel   context.CancelFunc
	epoch    uint64
	held     bool
}

func newLoop(s Scheduler, lock Lock, d *Dispatcher, interval time.Duration) *loop {
	root, stop := context.WithCancel(context.Background())
	return &loop{
		scheduler:  s,
		lock:       lock,
		dispatcher: d,
		interval:   interval,
		root:       root,
		stopRoot:   stop,
		ctx:        root,
	}
}

// acquire takes the camera and starts the scheduler under a fresh epoch.
func (l *loop) acquire() (uint64, error) {
	if l.held {
		return l.epoch, nil
	}
	if l.lock != nil {
		if err := l.lock.Acquire(); err != nil {
			return 0, err
		}
	}
	l.epoch++
	l.ctx, l.cancel = context.WithCancel(l.root)
	l.held = true

	epoch, d := l.epoch, l.dispatcher
	l.scheduler.Start(l.interval, func(at time.Time) {
		d.Send(TickMsg{Epoch: epoch, At: at})
	})
	return epoch, nil
}

// release stops the scheduler, abandons the in-flight request and frees
// the camera. It runs at most once per acquire.
func (l *loop) release() error {
	if !l.held {
		return nil
	}
	l.held = false
	l.scheduler.Stop()
	if l.cancel != nil {
		l.cancel()
	}
	l.epoch++
	if l.lock != nil {
		return l.lock.Release()
	}
	return nil
}

// shutdown releases and cancels anything still waiting on the root context.
func (l *loop) shutdown() error {
	err := l.release()
	l.stopRoot()
	return err
}
