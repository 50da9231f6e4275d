// Package parallel provides the worker pool that runs bake tasks off the
// caller and render goroutines: finalize work, geometry preparation and
// shader compilation.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs tasks on a fixed set of goroutines.
//
// Each worker owns a queue. Submit places a task on the shortest queue and
// an idle worker steals from the others, so long finalize tasks do not hold
// up short ones queued behind them.
//
// Tasks must not wait on other tasks of the same pool.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// inflight counts tasks that are queued or executing.
	inflight atomic.Int64
}

// NewWorkerPool starts a pool with the given number of workers. If workers
// is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case task := <-own:
			p.run(task)
			continue
		default:
		}

		if task := p.steal(id); task != nil {
			p.run(task)
			continue
		}

		select {
		case <-p.done:
			p.drain(own)
			return
		case task := <-own:
			p.run(task)
		}
	}
}

func (p *WorkerPool) run(task func()) {
	if task == nil {
		return
	}
	defer p.inflight.Add(-1)
	task()
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			p.run(task)
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. It blocks while
// every queue is full. After Close, fn runs on the calling goroutine so
// that no submitted work is lost.
func (p *WorkerPool) Submit(fn func()) {
	if fn == nil {
		return
	}
	if !p.running.Load() {
		fn()
		return
	}

	target := 0
	for i := 1; i < p.workers; i++ {
		if len(p.queues[i]) < len(p.queues[target]) {
			target = i
		}
	}

	p.inflight.Add(1)
	select {
	case p.queues[target] <- fn:
	case <-p.done:
		p.inflight.Add(-1)
		fn()
	}
}

// ExecuteAll runs every task and waits for all of them.
func (p *WorkerPool) ExecuteAll(tasks []func()) {
	if len(tasks) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, fn := range tasks {
		p.Submit(func() {
			defer wg.Done()
			fn()
		})
	}
	wg.Wait()
}

// Close stops accepting work, runs what is queued and stops the workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }

// Inflight returns the number of tasks queued or executing.
func (p *WorkerPool) Inflight() int64 { return p.inflight.Load() }
