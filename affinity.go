package office2pdf

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// taskQueueDepth sizes each worker's queue. Callers are permit-gated
// by the resource pool, so the queue never fills in practice; the
// buffer only absorbs submission bursts.
const taskQueueDepth = 64

// affinityTask pairs a function with its completion channel. The
// owning worker sends exactly one value: nil after running the
// function, or ErrWorkerPoolClosed when the task is cancelled during
// shutdown.
type affinityTask struct {
	fn  func()
	res chan error
}

// AffinityPool runs tasks on a fixed set of dedicated OS threads.
// Each worker thread owns a private queue and executes one task to
// completion before pulling the next. A resource created on worker i
// must route all later operations back to worker i; native conversion
// objects are unsafe to touch from any other thread.
type AffinityPool struct {
	queues []chan affinityTask
	next   atomic.Uint32

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewAffinityPool starts n dedicated worker threads. Values below 1
// are raised to 1.
func NewAffinityPool(n int) *AffinityPool {
	if n < 1 {
		n = 1
	}

	p := &AffinityPool{
		queues: make([]chan affinityTask, n),
		done:   make(chan struct{}),
	}

	for i := range p.queues {
		queue := make(chan affinityTask, taskQueueDepth)
		p.queues[i] = queue
		p.wg.Add(1)
		go p.worker(queue)
	}

	return p
}

// worker pins itself to an OS thread and serves its queue until
// shutdown. The thread is never unlocked: it dies with the goroutine,
// so no other goroutine can ever be scheduled onto it while a native
// resource is bound here.
func (p *AffinityPool) worker(queue chan affinityTask) {
	defer p.wg.Done()
	runtime.LockOSThread()

	for {
		select {
		case t := <-queue:
			t.fn()
			t.res <- nil
		case <-p.done:
			// Cancel anything still queued. No new submissions can
			// arrive: Close sets closed under the mutex before
			// signalling done, and Run refuses once closed is set.
			for {
				select {
				case t := <-queue:
					t.res <- ErrWorkerPoolClosed
				default:
					return
				}
			}
		}
	}
}

// Workers returns the number of dedicated threads.
func (p *AffinityPool) Workers() int {
	return len(p.queues)
}

// Assign picks a worker index for a new resource, round robin. The
// caller must route every later operation on that resource through
// Run with the same index.
func (p *AffinityPool) Assign() int {
	return int(p.next.Add(1)-1) % len(p.queues)
}

// Run executes fn on the given worker thread and waits for it to
// finish. The context bounds only the wait for queue space; once fn
// has been accepted it runs to completion regardless of cancellation,
// because the native call underneath is not preemptible.
func (p *AffinityPool) Run(ctx context.Context, worker int, fn func()) error {
	if worker < 0 || worker >= len(p.queues) {
		return fmt.Errorf("affinity pool: worker %d out of range [0,%d)", worker, len(p.queues))
	}

	t := affinityTask{fn: fn, res: make(chan error, 1)}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return ErrWorkerPoolClosed
		}
		select {
		case p.queues[worker] <- t:
			p.mu.Unlock()
			// Every accepted task gets exactly one result: the worker
			// either runs it or fails it while draining at shutdown.
			return <-t.res
		default:
		}
		p.mu.Unlock()

		// Queue full. Back off briefly outside the lock and retry.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return ErrWorkerPoolClosed
		case <-time.After(time.Millisecond):
		}
	}
}

// Close stops all worker threads. Queued tasks that have not started
// fail with ErrWorkerPoolClosed; a task already running completes
// first. Safe to call more than once.
func (p *AffinityPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}
