// Package dispatch provides execution contexts and callback forwarding.
//
// A Context is a place code can be scheduled to run: a goroutine-backed
// queue, an event loop, a test recorder. Callbacks produced on a device
// worker are never invoked there directly; they are marshaled onto a
// caller-chosen Context through a Forwarder.
package dispatch

import "sync"

// Context accepts units of work for execution on its own goroutine.
type Context interface {
	// Post schedules fn to run on the context. It never blocks on fn
	// itself. Post returns false if the context has shut down and the
	// work was dropped.
	Post(fn func()) bool
}

// Queue is a serial Context backed by a single goroutine. Work posted
// to a Queue runs in FIFO order, one unit at a time.
type Queue struct {
	name string

	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool

	done chan struct{}
}

// NewQueue creates and starts a named serial queue.
func NewQueue(name string) *Queue {
	q := &Queue{
		name: name,
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Name returns the queue name given at construction.
func (q *Queue) Name() string { return q.name }

// Post schedules fn on the queue. Posting to a closed queue is a no-op
// and returns false.
func (q *Queue) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return true
}

// Close stops the queue after running all already-posted work. It is
// idempotent and blocks until the queue goroutine has exited.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}

// ContextFunc adapts a plain scheduling function into a Context.
type ContextFunc func(fn func())

// Post schedules fn through the adapted function.
func (c ContextFunc) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	c(fn)
	return true
}
