package reactor

import (
	"context"
	"sync/atomic"

	"github.com/behrlich/ringd/internal/constants"
	"github.com/behrlich/ringd/internal/event"
	"github.com/behrlich/ringd/internal/fixedmsg"
	"github.com/behrlich/ringd/internal/interfaces"
	"github.com/behrlich/ringd/internal/jobbridge"
	"github.com/behrlich/ringd/internal/routeengine"
	"github.com/behrlich/ringd/internal/uring"
	"golang.org/x/sys/unix"
)

// dispatch routes one completion to its handler, mirroring runloop's
// "is this the accept tag, or an event pointer" branch — here, "is
// this the reserved accept token, or a registered record" lookup.
func (r *Reactor) dispatch(res uring.Result) {
	if res.UserData() == acceptToken {
		r.handleAccept(res)
		return
	}

	rec := r.take(res.UserData())
	if rec == nil {
		return // stale or already-handled completion (e.g. a canceled wait)
	}

	switch rec.Kind {
	case event.KindReadClient:
		r.handleReadClient(rec, res)
	case event.KindFileStat:
		r.handleFileStat(rec, res)
	case event.KindFileOpen:
		r.handleFileOpen(rec, res)
	case event.KindFileRead:
		r.handleFileRead(rec, res)
	case event.KindFileClose:
		r.handleFileClose(rec, res)
	case event.KindWriteDirect, event.KindWriteVectored:
		r.handleWriteComplete(rec, res)
	case event.KindJobComplete:
		r.handleJobComplete(rec, res)
	}
}

func (r *Reactor) handleAccept(res uring.Result) {
	fd := int(res.Res())
	if fd < 0 {
		r.observeError("accept")
		return
	}

	req := &event.Request{ClientFD: fd}
	buf := r.alloc.Alloc(constants.HTTPMaxRequestBufferSize)
	rec := event.NewReadClient(req, buf)
	token := r.register(rec)
	if err := r.ring.PrepareRead(fd, buf, 0, token); err != nil {
		r.take(token)
		r.release(rec)
		unix.Close(fd)
		return
	}
	r.submissionCount++
}

func (r *Reactor) handleReadClient(rec *event.Record, res uring.Result) {
	req := rec.Req
	n := res.Res()
	buf := rec.HTTPBuf

	if n <= 0 {
		r.alloc.Free(buf)
		r.observeError("malformed_request")
		r.sendFixed(req, fixedmsg.MalformedRequest)
		return
	}

	parsed, err := routeengine.Parse(buf, int(n))
	if err != nil {
		r.alloc.Free(buf)
		r.observeError("malformed_request")
		r.sendFixed(req, fixedmsg.MalformedRequest)
		return
	}
	if parsed.Method != "GET" {
		r.alloc.Free(buf)
		r.observeError("unsupported_verb")
		r.sendFixed(req, fixedmsg.UnsupportedVerb)
		return
	}

	req.Route = parsed.Path
	kind, handler := r.routes.Lookup(parsed.Method, parsed.Path)

	// Body outlives buf (it may cross into a job-bridge worker
	// goroutine), so it gets its own independent copy rather than a
	// slab allocation the reactor would otherwise have to coordinate
	// freeing across goroutines.
	var body []byte
	if len(parsed.Body) > 0 {
		body = append([]byte(nil), parsed.Body...)
	}
	r.alloc.Free(buf)

	switch kind {
	case interfaces.RouteFixed, interfaces.RouteInline:
		r.dispatchInline(req, handler, body)
	case interfaces.RouteFile:
		r.dispatchFile(req, handler, parsed.Path)
	case interfaces.RouteJob:
		r.dispatchJob(req, handler, body)
	default:
		r.observeError("route_not_found")
		r.sendFixed(req, fixedmsg.NotFound)
	}
}

func (r *Reactor) dispatchInline(req *event.Request, handler string, body []byte) {
	out, err := r.routes.InvokeInline(handler, body)
	if err != nil {
		r.observeError("internal_error")
		r.sendFixed(req, fixedmsg.InternalServerError)
		return
	}
	r.sendJSON(req, out)
}

func (r *Reactor) dispatchJob(req *event.Request, handler string, body []byte) {
	outcome := &jobbridge.Outcome{}
	futexWord := new(uint32)
	rec := event.NewJobComplete(req.Clone(), outcome)
	token := r.register(rec)

	if err := r.ring.PrepareFutexWait(futexWord, 0, token); err != nil {
		r.take(token)
		r.observeError("internal_error")
		r.sendFixed(req, fixedmsg.InternalServerError)
		return
	}
	r.submissionCount++

	job := jobbridge.Job{
		Handler:   func(b []byte) ([]byte, error) { return r.routes.InvokeJob(handler, b) },
		Body:      body,
		FutexWord: futexWord,
		Result:    outcome,
	}
	if err := r.bridge.Submit(context.Background(), job); err != nil {
		// The futex wait SQE is armed but not yet flushed. Moving the
		// word off its expected 0 makes that wait complete at once when
		// it is submitted, and handleJobComplete answers outcome.Err
		// with a 500, even though no worker will ever run the handler.
		outcome.Err = err
		atomic.StoreUint32(futexWord, 1)
		if r.logger != nil {
			r.logger.Printf("reactor: job submit failed: %v", err)
		}
	}
}

func (r *Reactor) dispatchFile(req *event.Request, handler, requestPath string) {
	fullPath := r.routes.FilePath(handler, requestPath)

	if data, ok := r.cache.TryGet(fullPath); ok {
		if r.observer != nil {
			r.observer.ObserveFile(uint64(len(data)), 0, true, true)
		}
		r.sendFileContent(req, fullPath, data, false)
		return
	}

	path := r.alloc.CopyString(fullPath)
	rec := event.NewFileStat(req, path, true)
	token := r.register(rec)
	statx, err := r.ring.PrepareStatx(fullPath, token)
	if err != nil {
		r.take(token)
		r.release(rec)
		r.observeError("file_not_found")
		r.sendFixed(req, fixedmsg.NotFound)
		return
	}
	rec.Statx = statx
	r.submissionCount++
}

func (r *Reactor) handleFileStat(rec *event.Record, res uring.Result) {
	if res.Res() < 0 {
		req := rec.Req
		r.release(rec)
		r.observeError("file_not_found")
		r.sendFixed(req, fixedmsg.NotFound)
		return
	}
	rec.FileSize = int64(rec.Statx.Size)

	next := rec.IntoFileOpen()
	token := r.register(next)
	if err := r.ring.PrepareOpenat(string(next.Path), unix.O_RDONLY, token); err != nil {
		req := next.Req
		r.take(token)
		r.release(next)
		r.observeError("internal_error")
		r.sendFixed(req, fixedmsg.InternalServerError)
		return
	}
	r.submissionCount++
}

func (r *Reactor) handleFileOpen(rec *event.Record, res uring.Result) {
	if res.Res() < 0 {
		req := rec.Req
		r.release(rec)
		r.observeError("file_not_found")
		r.sendFixed(req, fixedmsg.NotFound)
		return
	}

	fd := int(res.Res())
	if rec.FileSize == 0 {
		req := rec.Req.Clone()
		path := string(rec.Path)
		r.release(rec)
		unix.Close(fd)
		if r.observer != nil {
			r.observer.ObserveFile(0, 0, false, true)
		}
		r.sendFileContent(req, path, nil, false)
		return
	}

	data := r.alloc.Alloc(int(rec.FileSize))
	next := rec.IntoFileRead(fd, rec.FileSize, data)
	token := r.register(next)
	if err := r.ring.PrepareRead(fd, data, 0, token); err != nil {
		req := next.Req
		r.take(token)
		r.release(next)
		unix.Close(fd)
		r.observeError("internal_error")
		r.sendFixed(req, fixedmsg.InternalServerError)
		return
	}
	r.submissionCount++
}

func (r *Reactor) handleFileRead(rec *event.Record, res uring.Result) {
	n := res.Res()
	if n < 0 {
		req := rec.Req
		fd := rec.FileFD
		r.release(rec)
		unix.Close(fd)
		r.observeError("internal_error")
		r.sendFixed(req, fixedmsg.InternalServerError)
		return
	}

	data := rec.FileData[:n]
	path := string(rec.Path)

	// The path buffer is not needed past this point: the cache indexes
	// by Go string, not by the slab allocation, so it is freed here
	// rather than carried forward into the close record.
	r.alloc.Free(rec.Path)
	rec.Path = nil

	stored := r.cache.Put(path, data)
	respReq := rec.Req.Clone()

	next := rec.IntoFileClose()
	closeToken := r.register(next)
	if err := r.ring.PrepareClose(next.FileFD, closeToken); err != nil {
		r.take(closeToken)
		r.release(next)
	} else {
		r.submissionCount++
	}

	if r.observer != nil {
		r.observer.ObserveFile(uint64(len(stored)), 0, false, true)
	}
	r.sendFileContent(respReq, path, stored, false)
}

func (r *Reactor) handleFileClose(rec *event.Record, res uring.Result) {
	if res.Res() < 0 && r.logger != nil {
		r.logger.Printf("reactor: close failed fd=%d res=%d", rec.FileFD, res.Res())
	}
	r.release(rec)
}

func (r *Reactor) handleWriteComplete(rec *event.Record, res uring.Result) {
	if res.Res() < 0 && r.logger != nil {
		r.logger.Printf("reactor: write failed fd=%d res=%d", rec.Req.ClientFD, res.Res())
	}
	fd := rec.Req.ClientFD
	r.release(rec)
	unix.Close(fd)
}

func (r *Reactor) handleJobComplete(rec *event.Record, res uring.Result) {
	outcome := rec.JobOutcome
	req := rec.Req

	if outcome == nil || outcome.Err != nil {
		r.observeError("job_failed")
		r.sendFixed(req, fixedmsg.InternalServerError)
		return
	}
	r.sendJobResult(req, outcome.Data)
}
