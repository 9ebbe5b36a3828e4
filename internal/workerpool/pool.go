// Package workerpool runs chunk compression and decompression on a fixed set
// of goroutines.
//
// Submit hands a task to an idle worker and blocks while every worker is busy,
// so producers are throttled by the pool itself. Each task returns a Future;
// results are consumed in whatever order the caller waits on them, which is
// how the stream layer retires chunks in sequence even though they finish out
// of order.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("workerpool: closed")
	// ErrPanic wraps the value of a task that panicked.
	ErrPanic = errors.New("workerpool: task panicked")
)

// Future is the pending result of a submitted task.
type Future struct {
	done chan struct{}
	err  error
}

// Wait blocks until the task finished and returns its error.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// Done returns a channel closed when the task finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the task finished, without blocking.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

type task struct {
	fn     func() error
	future *Future
}

// Pool is a fixed-size set of workers.
type Pool struct {
	tasks  chan task
	quit   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	size   int
	logger *slog.Logger
}

// New starts a pool of n workers (at least one).
func New(n int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Pool{
		tasks:  make(chan task),
		quit:   make(chan struct{}),
		size:   max(n, 1),
		logger: logger,
	}

	p.wg.Add(p.size)
	for id := range p.size {
		go p.worker(id)
	}

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit hands fn to an idle worker, blocking until one accepts it, ctx is
// done or the pool is closed.
func (p *Pool) Submit(ctx context.Context, fn func() error) (*Future, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := task{fn: fn, future: &Future{done: make(chan struct{})}}

	select {
	case p.tasks <- t:
		return t.future, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrClosed
	}
}

// Close stops accepting tasks and waits for running tasks to finish. Futures
// already returned by Submit always complete.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case t := <-p.tasks:
			t.future.err = p.run(id, t.fn)
			close(t.future.done)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) run(id int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", "worker", id, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	return fn()
}
