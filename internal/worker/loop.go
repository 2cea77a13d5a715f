// Package worker provides the per-device command loop. Each open device
// gets exactly one Loop; every operation that touches the hardware
// handle is a command executed here, one at a time, in submission order.
package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmtar/camgate/internal/logging"
)

// Loop errors.
var (
	// ErrClosed is returned by Submit and SubmitWait once the loop has
	// stopped accepting work.
	ErrClosed = errors.New("worker: loop no longer accepts work")

	// ErrWaitTimeout is returned by SubmitWait when the caller's wait
	// expires. The command itself still runs to completion; hardware
	// operations are not preempted mid-flight.
	ErrWaitTimeout = errors.New("worker: wait for command expired")

	// ErrCanceled is reported for commands that were dropped from the
	// queue before they started executing.
	ErrCanceled = errors.New("worker: command canceled before execution")
)

// State describes the lifecycle of a Loop.
type State string

// Loop states.
const (
	StateRunning  State = "running"
	StateDraining State = "draining" // intake closed, queued commands finishing
	StateStopped  State = "stopped"
	StateFaulted  State = "faulted" // a command panicked; terminal
)

type command struct {
	name string
	run  func()
	done chan error // buffered; nil for fire-and-forget submissions
}

func (c *command) finish(err error) {
	if c.done != nil {
		c.done <- err
	}
}

// Loop is a single sequential execution context that owns one hardware
// handle for its entire lifetime.
type Loop struct {
	name    string
	logger  logging.Logger
	onFault func(error)

	mu    sync.Mutex
	cond  *sync.Cond
	queue []*command
	state State

	exited chan struct{}
}

// NewLoop creates and starts a command loop. onFault receives the error
// of any command that panics; it is invoked on the loop goroutine, at
// most once, after which the loop is terminal. A nil onFault makes a
// fault fatal in place of delivery: it is logged and the loop stops.
func NewLoop(name string, logger logging.Logger, onFault func(error)) *Loop {
	l := &Loop{
		name:    name,
		logger:  logger,
		onFault: onFault,
		state:   StateRunning,
		exited:  make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Submit enqueues a command and returns immediately.
func (l *Loop) Submit(name string, fn func()) error {
	return l.enqueue(&command{name: name, run: fn})
}

// SubmitWait enqueues a command and blocks the caller until it has
// completed or timeout elapses. On timeout the command is left in
// place and still executes; only the wait is abandoned.
func (l *Loop) SubmitWait(name string, fn func(), timeout time.Duration) error {
	cmd := &command{name: name, run: fn, done: make(chan error, 1)}
	if err := l.enqueue(cmd); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-cmd.done:
		return err
	case <-timer.C:
		l.logger.Warn("Command wait expired", "loop", l.name, "command", name, "timeout", timeout)
		return ErrWaitTimeout
	}
}

func (l *Loop) enqueue(cmd *command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateRunning {
		return ErrClosed
	}
	l.queue = append(l.queue, cmd)
	l.cond.Signal()
	return nil
}

// Shutdown stops intake and waits for the loop goroutine to exit. With
// drain set, already-queued commands run to completion first; otherwise
// queued-but-not-started commands are canceled. The command currently
// executing is never interrupted. Shutdown is idempotent.
func (l *Loop) Shutdown(drain bool) {
	l.mu.Lock()
	if l.state == StateRunning {
		l.state = StateDraining
		if !drain {
			l.cancelQueuedLocked()
		}
		l.cond.Signal()
	}
	l.mu.Unlock()
	<-l.exited
}

// cancelQueuedLocked completes every queued command with ErrCanceled so
// no synchronous waiter is left hanging. Caller holds l.mu.
func (l *Loop) cancelQueuedLocked() {
	for _, cmd := range l.queue {
		cmd.finish(ErrCanceled)
	}
	l.queue = nil
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && l.state == StateRunning {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			if l.state == StateDraining {
				l.state = StateStopped
			}
			l.mu.Unlock()
			return
		}
		cmd := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		if fault := l.execute(cmd); fault != nil {
			l.fail(fault)
			return
		}
	}
}

// execute runs one command, converting a panic into a fault error.
func (l *Loop) execute(cmd *command) (fault error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				fault = fmt.Errorf("command %q: %w", cmd.name, err)
			} else {
				fault = fmt.Errorf("command %q: %v", cmd.name, r)
			}
			cmd.finish(fault)
		}
	}()

	cmd.run()
	cmd.finish(nil)
	return nil
}

// fail transitions the loop to its terminal faulted state, cancels all
// remaining queued work, and hands the fault to the handler.
func (l *Loop) fail(fault error) {
	l.mu.Lock()
	l.state = StateFaulted
	l.cancelQueuedLocked()
	l.mu.Unlock()

	if l.onFault != nil {
		l.onFault(fault)
		return
	}
	l.logger.Error("Unhandled fault stopped command loop", "loop", l.name, "error", fault)
}
