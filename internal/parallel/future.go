package parallel

import "sync"

// Future is the pending result of a task submitted with Async.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
}

// Async runs fn on the pool and returns a future for its result.
func Async[T any](p *WorkerPool, fn func() T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	p.Submit(func() {
		f.resolve(fn())
	})
	return f
}

// Ready returns a future that already holds v.
func Ready[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.resolve(v)
	return f
}

func (f *Future[T]) resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Wait blocks until the result is available and returns it.
func (f *Future[T]) Wait() T {
	<-f.done
	return f.value
}

// IsReady reports whether Wait would return immediately.
func (f *Future[T]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
