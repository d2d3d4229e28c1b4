// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"payment-events/internal/infra/metrics"
)

var (
	ErrQueueFull  = errors.New("worker queue full")
	ErrPoolClosed = errors.New("worker pool closed")
)

// Task is the unit of work. It is an alias so plain funcs satisfy
// interfaces declared elsewhere.
type Task = func(ctx context.Context) error

// Pool is a small bounded worker pool. Submit never blocks; Stop drains what
// was already accepted.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan Task
	wg     sync.WaitGroup
	n      int
	cancel context.CancelFunc
	log    *zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	return &Pool{jobs: make(chan Task, queueSize), n: workers, cancel: func() {}, log: logger}
}

// Start launches the workers. Tasks receive a context derived from ctx that
// is canceled when Stop gives up waiting.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				p.run(ctx, id, task)
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerTask("failed")
			p.log.Error().Int("worker", id).Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("worker task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		metrics.IncWorkerTask("failed")
		p.log.Debug().Err(err).Int("worker", id).Msg("worker task error")
		return
	}
	metrics.IncWorkerTask("completed")
}

// Stop refuses new work and waits for queued tasks until ctx is done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	defer p.cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.log.Warn().Int("pending", len(p.jobs)).Msg("worker pool stop timed out; abandoning queued tasks")
		return ctx.Err()
	}
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncWorkerTask("rejected")
		return ErrQueueFull
	}
}
