// Package reactor implements the single-threaded completion pump: arm a
// multishot accept, drain completions in ring-return order, dispatch to
// the route engine or job bridge, and batch submissions once per drain.
//
// The control flow — wait for one completion, then peek-drain the rest
// until the submission queue is within a safety margin of full, dispatch
// on each record's kind, submit once at the end — is a direct translation
// of this module's runloop: the same loop shape, the same 16-slot
// margin, the same "one io_uring_submit per drain" batching discipline.
package reactor

import (
	"context"
	"fmt"
	"runtime"

	"github.com/behrlich/ringd/internal/aiopool"
	"github.com/behrlich/ringd/internal/constants"
	"github.com/behrlich/ringd/internal/event"
	"github.com/behrlich/ringd/internal/filecache"
	"github.com/behrlich/ringd/internal/interfaces"
	"github.com/behrlich/ringd/internal/jobbridge"
	"github.com/behrlich/ringd/internal/routeengine"
	"github.com/behrlich/ringd/internal/slab"
	"github.com/behrlich/ringd/internal/uring"
)

// acceptToken is the sentinel user_data value for the standing multishot
// accept SQE, distinguished from every other (registry-assigned) token
// the same way the source's low-bit RING_EVENT_TYPE_ACCEPT tag singles
// out accept completions before dispatching on an event record.
const acceptToken = ^uint64(0)

// Config wires a Reactor to its collaborators.
type Config struct {
	ListenFD   int
	Routes     interfaces.RouteTable
	Logger     interfaces.Logger
	Observer   interfaces.Observer
	QueueDepth uint32

	NumJobWorkers int
	JobQueueDepth int
}

// Reactor owns the ring, the slab allocator, the AIO pool, and the file
// cache — everything spec'd as reactor-local and therefore never
// touched from another goroutine except the job bridge's own pool,
// which only ever hands results back through futex wake-ups.
type Reactor struct {
	ring     uring.Ring
	alloc    *slab.Allocator
	aio      *aiopool.Pool
	cache    *filecache.Cache
	routes   interfaces.RouteTable
	bridge   *jobbridge.Bridge
	logger   interfaces.Logger
	observer interfaces.Observer

	listenFD int

	// records is the user_data registry: Go cannot safely round-trip a
	// bare pointer through a uint64 the way the C source this was
	// adapted from does (io_uring_sqe_set_data(sqe, evt)), since a value
	// stored only as an integer is invisible to the garbage collector.
	// A token->record map, consulted only from the reactor goroutine,
	// keeps every live record reachable instead.
	records   map[uint64]*event.Record
	nextToken uint64

	submissionCount int
}

// New creates a Reactor. The ring is created here; Run arms the
// multishot accept and enters the drain loop.
func New(cfg Config) (*Reactor, error) {
	ring, err := uring.NewRing(uring.Config{Entries: cfg.QueueDepth})
	if err != nil {
		return nil, fmt.Errorf("reactor: creating ring: %w", err)
	}

	r := &Reactor{
		ring:     ring,
		alloc:    slab.New(),
		aio:      aiopool.New(),
		cache:    filecache.New(),
		routes:   cfg.Routes,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		listenFD: cfg.ListenFD,
		records:  make(map[uint64]*event.Record),
	}
	r.bridge = jobbridge.New(jobbridge.Config{
		NumWorkers: cfg.NumJobWorkers,
		QueueDepth: cfg.JobQueueDepth,
		Pool:       r.aio,
		Observer:   cfg.Observer,
		Logger:     cfg.Logger,
	})
	return r, nil
}

// Run pins the calling goroutine to its OS thread — a ring fd is only
// valid for io_uring_enter calls from threads sharing the creating
// thread's descriptor table, and pinning avoids a surprise goroutine
// migration mid-batch — arms the standing multishot accept, and drains
// completions until ctx is canceled.
func (r *Reactor) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := r.ring.PrepareMultishotAccept(r.listenFD, acceptToken); err != nil {
		return fmt.Errorf("reactor: arming accept: %w", err)
	}
	if _, err := r.ring.FlushSubmissions(); err != nil {
		return fmt.Errorf("reactor: initial submit: %w", err)
	}
	if r.logger != nil {
		r.logger.Printf("reactor: listening")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		res, err := r.ring.WaitForCompletion()
		if err != nil {
			r.fatal(err)
		}
		r.dispatch(res)

		for r.ring.SQSpaceLeft() >= constants.SQSpaceMargin {
			res, ok, err := r.ring.PeekCompletion()
			if err != nil {
				r.fatal(err)
			}
			if !ok {
				break
			}
			r.dispatch(res)
		}

		if r.submissionCount > 0 {
			if _, err := r.ring.FlushSubmissions(); err != nil {
				return fmt.Errorf("reactor: flush: %w", err)
			}
			r.submissionCount = 0
		}
	}
}

// fatal handles a ring error that is not meaningfully recoverable — a
// bug in this reactor or the kernel interface, not a user-observable
// condition — by logging at error level and aborting the process, the
// same treatment the source gives an io_uring_wait_cqe failure
// (assert(false)).
func (r *Reactor) fatal(err error) {
	if r.logger != nil {
		r.logger.Printf("reactor: fatal ring error: %v", err)
	}
	panic(fmt.Errorf("reactor: ring fatal: %w", err))
}

// Close cancels the accept, tears down the ring, stops the job bridge,
// and clears the file cache. Order matters: the ring must stop producing
// completions before the records registry it indexes is abandoned.
func (r *Reactor) Close() error {
	r.bridge.Close()
	err := r.ring.Close()
	r.cache.Clear(r.alloc)
	return err
}

func (r *Reactor) register(rec *event.Record) uint64 {
	r.nextToken++
	token := r.nextToken
	r.records[token] = rec
	return token
}

func (r *Reactor) take(token uint64) *event.Record {
	rec := r.records[token]
	delete(r.records, token)
	return rec
}

func (r *Reactor) release(rec *event.Record) {
	rec.Release(r.alloc, r.aio)
}

func (r *Reactor) writeDirect(req *event.Request, data []byte) {
	rec := event.NewWriteDirect(req, data)
	token := r.register(rec)
	if err := r.ring.PrepareWrite(req.ClientFD, data, 0, token); err != nil {
		r.take(token)
		r.release(rec)
		return
	}
	r.submissionCount++
}

func (r *Reactor) writeVectored(rec *event.Record) {
	token := r.register(rec)
	if err := r.ring.PrepareWritev(rec.Req.ClientFD, [][]byte{rec.Header, rec.Body}, token); err != nil {
		r.take(token)
		r.release(rec)
		return
	}
	r.submissionCount++
}

// sendFixed writes one of the four constant error bodies directly —
// those bytes already are a complete HTTP/1.0 response, borrowed from
// static storage, so no header is built and nothing is freed on
// completion.
func (r *Reactor) sendFixed(req *event.Request, body []byte) {
	r.writeDirect(req.Clone(), body)
}

func (r *Reactor) sendJSON(req *event.Request, body []byte) {
	header := r.alloc.CopyBytes(routeengine.BuildJSONHeaders(len(body)))
	rec := event.NewWriteVectored(req.Clone(), header, body, false)
	r.writeVectored(rec)
}

func (r *Reactor) sendJobResult(req *event.Request, body []byte) {
	header := r.alloc.CopyBytes(routeengine.BuildJSONHeaders(len(body)))
	rec := event.NewWriteVectoredPoolBody(req.Clone(), header, body)
	r.writeVectored(rec)
}

func (r *Reactor) sendFileContent(req *event.Request, path string, body []byte, bodyOwned bool) {
	header := r.alloc.CopyBytes(routeengine.BuildFileHeaders(path, len(body)))
	rec := event.NewWriteVectored(req.Clone(), header, body, bodyOwned)
	r.writeVectored(rec)
}

func (r *Reactor) observeError(code string) {
	if r.observer != nil {
		r.observer.ObserveError(code)
	}
}
