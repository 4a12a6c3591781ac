package reactor

import (
	"sync"
	"testing"

	"github.com/behrlich/ringd/internal/aiopool"
	"github.com/behrlich/ringd/internal/event"
	"github.com/behrlich/ringd/internal/filecache"
	"github.com/behrlich/ringd/internal/interfaces"
	"github.com/behrlich/ringd/internal/jobbridge"
	"github.com/behrlich/ringd/internal/slab"
	"github.com/behrlich/ringd/internal/uring"
)

// fakeResult is a hand-rolled uring.Result for tests that need to drive
// dispatch() without a real ring.
type fakeResult struct {
	userData uint64
	res      int32
}

func (f fakeResult) UserData() uint64 { return f.userData }
func (f fakeResult) Res() int32       { return f.res }

// fakeRing is a minimal uring.Ring double recording every Prepare* call
// the reactor makes, so tests can assert on what got submitted without
// a kernel ring underneath.
type fakeRing struct {
	mu sync.Mutex

	writes  []fakeWrite
	writevs []fakeWritev
	statxFails bool
	openFails  bool
}

type fakeWrite struct {
	fd   int
	data []byte
}

type fakeWritev struct {
	fd   int
	iovs [][]byte
}

func (f *fakeRing) Close() error { return nil }

func (f *fakeRing) PrepareMultishotAccept(listenFD int, userData uint64) error { return nil }

func (f *fakeRing) PrepareRead(fd int, buf []byte, offset int64, userData uint64) error { return nil }

func (f *fakeRing) PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, fakeWrite{fd: fd, data: buf})
	return nil
}

func (f *fakeRing) PrepareWritev(fd int, iovs [][]byte, userData uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writevs = append(f.writevs, fakeWritev{fd: fd, iovs: iovs})
	return nil
}

func (f *fakeRing) PrepareStatx(path string, userData uint64) (*uring.Statx, error) {
	if f.statxFails {
		return nil, errTest
	}
	return &uring.Statx{Size: 4}, nil
}

func (f *fakeRing) PrepareOpenat(path string, flags int, userData uint64) error {
	if f.openFails {
		return errTest
	}
	return nil
}

func (f *fakeRing) PrepareClose(fd int, userData uint64) error { return nil }

func (f *fakeRing) PrepareFutexWait(word *uint32, expect uint32, userData uint64) error { return nil }

func (f *fakeRing) FlushSubmissions() (uint32, error) { return 0, nil }

func (f *fakeRing) WaitForCompletion() (uring.Result, error) { return nil, nil }

func (f *fakeRing) PeekCompletion() (uring.Result, bool, error) { return nil, false, nil }

func (f *fakeRing) SQSpaceLeft() int { return 256 }

var errTest = errFixed("fake ring failure")

type errFixed string

func (e errFixed) Error() string { return string(e) }

// fakeRoutes is a minimal interfaces.RouteTable double.
type fakeRoutes struct {
	kind     interfaces.RouteKind
	handler  string
	filePath string

	inline func([]byte) ([]byte, error)
	job    func([]byte) ([]byte, error)
}

func (f *fakeRoutes) Lookup(method, path string) (interfaces.RouteKind, string) {
	if f.kind == interfaces.RouteNotFound {
		return interfaces.RouteNotFound, ""
	}
	return f.kind, f.handler
}

func (f *fakeRoutes) InvokeInline(handler string, body []byte) ([]byte, error) {
	return f.inline(body)
}

func (f *fakeRoutes) InvokeJob(handler string, body []byte) ([]byte, error) {
	return f.job(body)
}

func (f *fakeRoutes) FilePath(handler, requestPath string) string {
	if f.filePath != "" {
		return f.filePath
	}
	return requestPath
}

func newTestReactor(ring *fakeRing, routes interfaces.RouteTable) *Reactor {
	return &Reactor{
		ring:    ring,
		alloc:   slab.New(),
		aio:     aiopool.New(),
		cache:   filecache.New(),
		routes:  routes,
		records: make(map[uint64]*event.Record),
	}
}

func TestHandleReadClientMalformedRequest(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{})

	req := &event.Request{ClientFD: -1}
	buf := r.alloc.Alloc(64)
	copy(buf, []byte("NOT A REQUEST\r\n\r\n"))
	rec := event.NewReadClient(req, buf)

	r.handleReadClient(rec, fakeResult{})

	if len(ring.writes) != 1 {
		t.Fatalf("writes = %d, want 1 (the malformed-request fixed response)", len(ring.writes))
	}
}

func TestHandleReadClientInlineRoute(t *testing.T) {
	ring := &fakeRing{}
	routes := &fakeRoutes{
		kind:    interfaces.RouteInline,
		handler: "hello",
		inline:  func(body []byte) ([]byte, error) { return []byte(`{"ok":true}`), nil },
	}
	r := newTestReactor(ring, routes)

	req := &event.Request{ClientFD: -1}
	buf := r.alloc.Alloc(64)
	copy(buf, []byte("GET /hello HTTP/1.0\r\n\r\n"))
	rec := event.NewReadClient(req, buf)

	r.handleReadClient(rec, fakeResult{res: 24})

	if len(ring.writevs) != 1 {
		t.Fatalf("writevs = %d, want 1 (the JSON response)", len(ring.writevs))
	}
	if string(ring.writevs[0].iovs[1]) != `{"ok":true}` {
		t.Errorf("response body = %q, want %q", ring.writevs[0].iovs[1], `{"ok":true}`)
	}
}

func TestHandleReadClientRouteNotFound(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{kind: interfaces.RouteNotFound})

	req := &event.Request{ClientFD: -1}
	buf := r.alloc.Alloc(64)
	copy(buf, []byte("GET /nope HTTP/1.0\r\n\r\n"))
	rec := event.NewReadClient(req, buf)

	r.handleReadClient(rec, fakeResult{res: 21})

	if len(ring.writes) != 1 {
		t.Fatalf("writes = %d, want 1 (the 404 fixed response)", len(ring.writes))
	}
}

func TestDispatchFileCacheHit(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{filePath: "/www/sample.json"})
	r.cache.Put("/www/sample.json", []byte(`{"cached":true}`))

	req := &event.Request{ClientFD: -1}
	r.dispatchFile(req, "sample", "/sample.json")

	if len(ring.writevs) != 1 {
		t.Fatalf("writevs = %d, want 1 (cache hit serves directly)", len(ring.writevs))
	}
}

func TestDispatchFileStatFailureSends404(t *testing.T) {
	ring := &fakeRing{statxFails: true}
	r := newTestReactor(ring, &fakeRoutes{filePath: "/www/missing.json"})

	req := &event.Request{ClientFD: -1}
	r.dispatchFile(req, "missing", "/missing.json")

	if len(ring.writes) != 1 {
		t.Fatalf("writes = %d, want 1 (404 on statx failure)", len(ring.writes))
	}
}

func TestHandleFileStatThenOpen(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{})

	req := &event.Request{ClientFD: -1}
	path := r.alloc.CopyString("/www/sample.json")
	rec := event.NewFileStat(req, path, true)
	rec.Statx = &uring.Statx{Size: 4}

	r.handleFileStat(rec, fakeResult{res: 0})

	if len(ring.writes) != 0 {
		t.Fatalf("writes = %d, want 0 (stat success moves to open, no response yet)", len(ring.writes))
	}
}

func TestHandleJobCompleteSuccess(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{})

	req := &event.Request{ClientFD: -1}
	outcome := &jobbridge.Outcome{Data: []byte(`{"fib":55}`)}
	rec := event.NewJobComplete(req, outcome)

	r.handleJobComplete(rec, fakeResult{})

	if len(ring.writevs) != 1 {
		t.Fatalf("writevs = %d, want 1 (job result written back)", len(ring.writevs))
	}
	if string(ring.writevs[0].iovs[1]) != `{"fib":55}` {
		t.Errorf("response body = %q, want %q", ring.writevs[0].iovs[1], `{"fib":55}`)
	}
}

func TestHandleJobCompleteError(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{})

	req := &event.Request{ClientFD: -1}
	outcome := &jobbridge.Outcome{Err: errTest}
	rec := event.NewJobComplete(req, outcome)

	r.handleJobComplete(rec, fakeResult{})

	if len(ring.writes) != 1 {
		t.Fatalf("writes = %d, want 1 (500 on job error)", len(ring.writes))
	}
}

func TestRegisterTakeRoundTrip(t *testing.T) {
	ring := &fakeRing{}
	r := newTestReactor(ring, &fakeRoutes{})

	rec := event.NewReadClient(&event.Request{ClientFD: -1}, nil)
	token := r.register(rec)

	if got := r.take(token); got != rec {
		t.Fatalf("take returned %v, want the registered record", got)
	}
	if got := r.take(token); got != nil {
		t.Fatalf("take after a prior take returned %v, want nil", got)
	}
}
