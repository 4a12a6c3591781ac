// Package event defines the continuation records the reactor attaches to
// io_uring user_data: one record per in-flight pipeline stage, carrying
// exactly the state that stage's completion needs plus whatever must be
// handed forward to the next stage.
//
// Each record is a tagged struct rather than an interface hierarchy with
// virtual Release methods: one Kind field picks which fields are live,
// matching how the reactor's completion pump already discriminates on a
// single tag rather than dynamic dispatch. Ownership moves from one stage
// to the next by copying the owned fields into the new record and nilling
// them on the old one (an affine "move"), so a defensive double-Release on
// a stale record is a silent no-op instead of a double-free.
package event

import (
	"github.com/behrlich/ringd/internal/aiopool"
	"github.com/behrlich/ringd/internal/jobbridge"
	"github.com/behrlich/ringd/internal/slab"
	"github.com/behrlich/ringd/internal/uring"
)

// Kind discriminates which fields of Record are live and owned.
type Kind uint8

const (
	KindReadClient Kind = iota
	KindFileStat
	KindFileOpen
	KindFileRead
	KindFileClose
	KindWriteDirect
	KindWriteVectored
	KindJobComplete
)

// Request is the per-connection state carried through a pipeline. It is
// cloned before every response send so error paths and the success path
// never fight over the same struct.
type Request struct {
	ClientFD int
	Route    string
	Body     []byte
}

// Clone returns a shallow copy of r. Body is shared (read-only past parse
// time); callers that need an independent buffer copy it themselves.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Record is the tagged continuation frame. Only the fields relevant to
// Kind are populated; Release frees exactly those.
type Record struct {
	Kind Kind
	Req  *Request

	// KindReadClient
	HTTPBuf []byte // slab-owned HTTP_MAX_REQUEST_BUFFER_SIZE scratch buffer

	// KindFileStat / KindFileOpen / KindFileRead / KindFileClose
	Path     []byte // slab-owned NUL-terminated path buffer
	Memoize  bool
	FileSize int64
	FileFD   int
	FileData []byte      // slab-owned; transferred into the file cache on success
	Statx    *uring.Statx // KindFileStat only; filled in by the ring on completion

	// KindWriteDirect
	DirectData []byte // borrowed (static storage); never freed

	// KindWriteVectored
	Header        []byte // slab-owned header buffer, always freed
	Body          []byte // vectored payload
	BodyIsOwned   bool   // release tag: true frees Body through the slab
	BodyPoolOwned bool   // release tag: true returns Body to the AIO pool instead

	// KindJobComplete
	JobOutcome *jobbridge.Outcome // shared with the bridge worker that filled it in
}

// NewReadClient starts a connection's pipeline.
func NewReadClient(req *Request, httpBuf []byte) *Record {
	return &Record{Kind: KindReadClient, Req: req, HTTPBuf: httpBuf}
}

// NewFileStat starts a file-service chain directly, for a route handled
// independently of any read-client record still in flight (the reactor
// already parsed and released the request before deciding to serve a
// file).
func NewFileStat(req *Request, path []byte, memoize bool) *Record {
	return &Record{Kind: KindFileStat, Req: req, Path: path, Memoize: memoize}
}

// IntoFileStat begins the file-service chain, taking ownership of r's
// Req (r.Req is nilled) and the HTTP buffer is released by the caller
// before this call, mirroring the source's stat event taking req from
// the read event.
func (r *Record) IntoFileStat(path []byte, memoize bool) *Record {
	next := &Record{Kind: KindFileStat, Req: r.Req, Path: path, Memoize: memoize}
	r.Req = nil
	return next
}

// IntoFileOpen transfers Req and Path from a stat record to an open record.
func (r *Record) IntoFileOpen() *Record {
	next := &Record{Kind: KindFileOpen, Req: r.Req, Path: r.Path, Memoize: r.Memoize, FileSize: r.FileSize}
	r.Req, r.Path = nil, nil
	return next
}

// IntoFileRead transfers Req, Path, and the open fd from an open record
// to a read record, attaching the freshly allocated data buffer.
func (r *Record) IntoFileRead(fd int, size int64, data []byte) *Record {
	next := &Record{Kind: KindFileRead, Req: r.Req, Path: r.Path, Memoize: r.Memoize, FileFD: fd, FileSize: size, FileData: data}
	r.Req, r.Path = nil, nil
	return next
}

// IntoFileClose transfers Req and Path forward once more so the close
// completion still has a request to attribute log lines to, matching the
// source's close event carrying req through to the final step.
func (r *Record) IntoFileClose() *Record {
	next := &Record{Kind: KindFileClose, Req: r.Req, Path: r.Path, FileFD: r.FileFD}
	r.Req, r.Path, r.FileData = nil, nil, nil
	return next
}

// NewWriteDirect builds a borrowed-body direct write (fixed messages,
// inline computed JSON the caller still owns elsewhere).
func NewWriteDirect(req *Request, data []byte) *Record {
	return &Record{Kind: KindWriteDirect, Req: req, DirectData: data}
}

// NewWriteVectored builds a two-iovec write: an owned header buffer plus
// a body whose ownership is controlled by bodyOwned (false for borrowed
// static/cached storage, true for a slab-allocated buffer the write
// completion must free).
func NewWriteVectored(req *Request, header, body []byte, bodyOwned bool) *Record {
	return &Record{Kind: KindWriteVectored, Req: req, Header: header, Body: body, BodyIsOwned: bodyOwned}
}

// NewWriteVectoredPoolBody is NewWriteVectored for a job-bridge result:
// Body came from the AIO pool and must be returned there, not to the
// slab, once the write completes.
func NewWriteVectoredPoolBody(req *Request, header, body []byte) *Record {
	return &Record{Kind: KindWriteVectored, Req: req, Header: header, Body: body, BodyPoolOwned: true}
}

// NewJobComplete arms the continuation for a submitted job: outcome is
// a pointer the bridge worker fills in before waking the futex the
// reactor is waiting on, so by the time this record's completion is
// dispatched outcome.Data/Err are already populated.
func NewJobComplete(req *Request, outcome *jobbridge.Outcome) *Record {
	return &Record{Kind: KindJobComplete, Req: req, JobOutcome: outcome}
}

// Release returns every field Kind owns to its allocator, then lets the
// Record itself be collected (records are not slab-allocated themselves;
// only their payload buffers are, since the Go heap already amortizes
// small fixed-struct allocations well via escape analysis).
func (r *Record) Release(alloc *slab.Allocator, pool *aiopool.Pool) {
	switch r.Kind {
	case KindReadClient:
		alloc.Free(r.HTTPBuf)
	case KindFileStat, KindFileOpen:
		alloc.Free(r.Path)
	case KindFileRead:
		alloc.Free(r.Path)
		// FileData ownership passes to the file cache on success; a
		// failed chain that never reached the cache frees it here.
		alloc.Free(r.FileData)
	case KindFileClose:
		alloc.Free(r.Path)
	case KindWriteDirect:
		// DirectData is borrowed; nothing to free.
	case KindWriteVectored:
		alloc.Free(r.Header)
		switch {
		case r.BodyPoolOwned && pool != nil:
			pool.Put(r.Body)
		case r.BodyIsOwned:
			alloc.Free(r.Body)
		}
	case KindJobComplete:
		// The reactor moves JobOutcome.Data into a KindWriteVectored
		// record (BodyPoolOwned) as soon as this completion is
		// dispatched; nothing here still owns a buffer to return.
	}
	*r = Record{}
}
