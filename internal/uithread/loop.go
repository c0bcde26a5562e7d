// Package uithread provides the single logical UI thread. Every window-system
// call and every focus transition runs on it, one at a time, so the focus
// core needs no locking of its own.
package uithread

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// ErrStopped is returned when work is submitted to a loop that is not running
var ErrStopped = errors.New("ui loop stopped")

// Loop executes submitted functions sequentially on one locked OS thread
type Loop struct {
	tasks    chan func()
	stopChan chan struct{}
	stopOnce sync.Once
	started  chan struct{}
}

// New creates a loop whose queue holds up to buffer pending functions
func New(buffer int) *Loop {
	if buffer < 1 {
		buffer = 1
	}
	return &Loop{
		tasks:    make(chan func(), buffer),
		stopChan: make(chan struct{}),
		started:  make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled or Stop is called.
// It blocks, so callers normally start it in its own goroutine.
func (l *Loop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	close(l.started)

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.stopChan:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Start runs the loop in a new goroutine and waits until it accepts work
func (l *Loop) Start(ctx context.Context) {
	go func() { _ = l.Run(ctx) }()
	<-l.started
}

// Stop ends the loop; queued functions that have not started are dropped
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}

// Do runs fn on the loop and waits for its result. ctx only bounds the wait
// for a queue slot; once fn is queued Do reports its result. It must not be
// called from the loop itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- errors.Errorf("ui task panicked: %v", r)
			}
		}()
		result <- fn()
	}

	select {
	case l.tasks <- task:
	case <-l.stopChan:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.stopChan:
		return ErrStopped
	}
}

// Post queues fn without waiting. It is safe to call from the loop and from
// window-system callbacks; fn is dropped if the loop has stopped.
func (l *Loop) Post(fn func()) {
	go func() {
		select {
		case l.tasks <- fn:
		case <-l.stopChan:
		}
	}()
}
