// Package jobbridge runs compute routes on a bounded worker pool instead
// of the reactor thread, then wakes the reactor via a futex word so the
// result surfaces as an ordinary ring completion.
//
// The design this was adapted from arms a FUTEX_WAIT SQE against a word
// and comments "run in separate thread with callback/futex for iouring"
// at the call site, but never implements the worker side — both the job
// submission and the completion handler are unimplemented placeholders
// there. This package completes that design: a worker goroutine computes
// the result, stores it, and performs the wake; the reactor's queued
// FUTEX_WAIT SQE (prepared by the caller, not this package) completes
// exactly once the wake lands.
package jobbridge

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/behrlich/ringd/internal/aiopool"
	"github.com/behrlich/ringd/internal/interfaces"
)

// Handler computes a job's result from its request body.
type Handler func(body []byte) ([]byte, error)

// Job is one unit of work submitted to the bridge.
type Job struct {
	Handler Handler
	Body    []byte

	// FutexWord is woken (FUTEX_WAKE) once Result is populated. The
	// reactor must have a FUTEX_WAIT SQE already armed against this
	// word before the job can complete usefully; a wake with no
	// waiter is harmless (the reactor will see a state mismatch and
	// not block on the next wait).
	FutexWord *uint32

	// Result is filled in by the worker, strictly before FutexWord is
	// woken, so the wake happens-after the write — the reactor only
	// ever reads *Result in response to that same wake, so there is no
	// data race despite the absence of a lock on the field itself.
	Result *Outcome
}

// Outcome is a job's result, placed in an AIO pool buffer so the reactor
// can hand it straight to a write completion without another copy.
type Outcome struct {
	Data []byte // aiopool-owned; caller must Pool.Put when done
	Err  error
}

// Bridge is a bounded worker pool draining a job queue.
type Bridge struct {
	jobs     chan Job
	pool     *aiopool.Pool
	observer interfaces.Observer
	logger   interfaces.Logger

	wg      sync.WaitGroup
	closed  atomic.Bool
}

// Config configures a Bridge.
type Config struct {
	NumWorkers int
	QueueDepth int
	Pool       *aiopool.Pool
	Observer   interfaces.Observer
	Logger     interfaces.Logger
}

// New starts NumWorkers worker goroutines draining a QueueDepth-buffered
// job channel. NumWorkers defaults to runtime.NumCPU() if <= 0.
func New(cfg Config) *Bridge {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 256
	}
	b := &Bridge{
		jobs:     make(chan Job, cfg.QueueDepth),
		pool:     cfg.Pool,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
	for i := 0; i < cfg.NumWorkers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Submit enqueues a job. It blocks if the queue is full; callers that
// need a non-blocking submit should select on a context instead.
func (b *Bridge) Submit(ctx context.Context, job Job) error {
	select {
	case b.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) worker() {
	defer b.wg.Done()
	for job := range b.jobs {
		b.run(job)
	}
}

func (b *Bridge) run(job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			if b.logger != nil {
				b.logger.Printf("jobbridge: handler panic: %v", rec)
			}
			b.complete(job, Outcome{Err: panicError{rec}})
		}
	}()

	result, err := job.Handler(job.Body)
	if err != nil {
		b.complete(job, Outcome{Err: err})
		return
	}

	buf := b.pool.Get()
	n := copy(buf, result)
	b.complete(job, Outcome{Data: buf[:n]})
}

func (b *Bridge) complete(job Job, out Outcome) {
	if job.Result != nil {
		*job.Result = out
	}
	if job.FutexWord != nil {
		atomic.AddUint32(job.FutexWord, 1)
		futexWake(job.FutexWord)
	}
	if b.observer != nil {
		b.observer.ObserveJob(uint64(len(out.Data)), 0, out.Err == nil)
	}
}

// Close stops accepting new jobs and waits for in-flight workers to
// drain. Jobs already queued still run to completion.
func (b *Bridge) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.jobs)
	}
	b.wg.Wait()
}

type panicError struct{ v any }

func (p panicError) Error() string { return "jobbridge: handler panicked" }
