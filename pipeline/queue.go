// Package pipeline runs device work on a dedicated render goroutine and
// overlaps GPU submission with CPU read-back.
//
// Queue is the render goroutine: a bounded channel of commands executed in
// order. Scheduler is the ring of pending read-back commands the render
// goroutine uses to keep a fixed number of submissions in flight.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// ErrQueueClosed is returned when enqueueing after Close.
var ErrQueueClosed = errors.New("pipeline: queue closed")

// DefaultQueueCapacity is the number of commands that can be buffered before
// Enqueue blocks.
const DefaultQueueCapacity = 64

// Queue executes commands in submission order on one goroutine.
//
// Enqueue, Do and Flush are safe for concurrent use. Commands must not
// enqueue into their own queue and wait for the result.
type Queue struct {
	mu     sync.RWMutex
	closed bool
	cmds   chan func()
	done   chan struct{}
}

// NewQueue starts the render goroutine. A non-positive capacity uses
// DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		cmds: make(chan func(), capacity),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for cmd := range q.cmds {
		q.exec(cmd)
	}
}

// exec runs a command, turning a panic into a logged error so one bad
// command cannot stop the render goroutine.
func (q *Queue) exec(cmd func()) {
	defer func() {
		if r := recover(); r != nil {
			logger().Error("render command panicked", "panic", fmt.Sprint(r))
		}
	}()
	cmd()
}

// Enqueue schedules fn. It blocks while the queue is full.
func (q *Queue) Enqueue(fn func()) error {
	if fn == nil {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.cmds <- fn
	return nil
}

// Do runs fn on the render goroutine and returns its error.
func (q *Queue) Do(fn func() error) error {
	errc := make(chan error, 1)
	if err := q.Enqueue(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pipeline: render command panicked: %v", r)
			}
			errc <- err
		}()
		err = fn()
	}); err != nil {
		return err
	}
	return <-errc
}

// Flush waits until every command enqueued before the call has run.
func (q *Queue) Flush() error {
	return q.Do(func() error { return nil })
}

// Close runs the remaining commands and stops the render goroutine. Close is
// safe to call multiple times.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.cmds)
	}
	q.mu.Unlock()
	<-q.done
}
