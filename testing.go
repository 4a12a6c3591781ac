package ringd

import (
	"sync"

	"github.com/behrlich/ringd/internal/interfaces"
)

// MockRouteTable is a call-tracking interfaces.RouteTable implementation
// for exercising a Server's request handling without wiring the
// canonical built-in routes — the route-table analogue of the backend
// call-tracking mock this was adapted from.
type MockRouteTable struct {
	mu sync.Mutex

	Routes map[string]mockRoute

	lookupCalls int
	inlineCalls int
	jobCalls    int
}

type mockRoute struct {
	kind     interfaces.RouteKind
	handler  string
	inline   func([]byte) ([]byte, error)
	job      func([]byte) ([]byte, error)
	filePath string
}

// NewMockRouteTable returns an empty mock table; add routes with
// AddInline/AddJob/AddFile before handing it to Serve.
func NewMockRouteTable() *MockRouteTable {
	return &MockRouteTable{Routes: make(map[string]mockRoute)}
}

// AddInline registers a synchronous handler under path.
func (m *MockRouteTable) AddInline(path, handler string, fn func([]byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Routes[path] = mockRoute{kind: interfaces.RouteInline, handler: handler, inline: fn}
}

// AddJob registers an off-reactor handler under path.
func (m *MockRouteTable) AddJob(path, handler string, fn func([]byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Routes[path] = mockRoute{kind: interfaces.RouteJob, handler: handler, job: fn}
}

// AddFile registers a file-backed route resolving to filePath.
func (m *MockRouteTable) AddFile(path, handler, filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Routes[path] = mockRoute{kind: interfaces.RouteFile, handler: handler, filePath: filePath}
}

// Lookup implements interfaces.RouteTable.
func (m *MockRouteTable) Lookup(method, path string) (interfaces.RouteKind, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	r, ok := m.Routes[path]
	if !ok {
		return interfaces.RouteNotFound, ""
	}
	return r.kind, r.handler
}

// InvokeInline implements interfaces.RouteTable.
func (m *MockRouteTable) InvokeInline(handler string, body []byte) ([]byte, error) {
	m.mu.Lock()
	m.inlineCalls++
	var fn func([]byte) ([]byte, error)
	for _, r := range m.Routes {
		if r.handler == handler && r.inline != nil {
			fn = r.inline
			break
		}
	}
	m.mu.Unlock()
	if fn == nil {
		return nil, NewError("InvokeInline", CodeInternalServerError, "")
	}
	return fn(body)
}

// InvokeJob implements interfaces.RouteTable.
func (m *MockRouteTable) InvokeJob(handler string, body []byte) ([]byte, error) {
	m.mu.Lock()
	m.jobCalls++
	var fn func([]byte) ([]byte, error)
	for _, r := range m.Routes {
		if r.handler == handler && r.job != nil {
			fn = r.job
			break
		}
	}
	m.mu.Unlock()
	if fn == nil {
		return nil, NewError("InvokeJob", CodeInternalServerError, "")
	}
	return fn(body)
}

// FilePath implements interfaces.RouteTable.
func (m *MockRouteTable) FilePath(handler, requestPath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Routes {
		if r.handler == handler {
			return r.filePath
		}
	}
	return requestPath
}

// CallCounts reports how many times each RouteTable method was invoked,
// for assertions in tests that exercise a Server end to end.
func (m *MockRouteTable) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"lookup": m.lookupCalls,
		"inline": m.inlineCalls,
		"job":    m.jobCalls,
	}
}

var _ interfaces.RouteTable = (*MockRouteTable)(nil)
