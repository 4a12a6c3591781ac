// Package interfaces provides internal interface definitions shared across
// the reactor, route engine, and job bridge. These are separate from the
// public root-package interfaces to avoid circular imports.
package interfaces

// Logger is the subset of logging.Logger every internal package depends on.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer receives timing and outcome events from the reactor and job
// bridge. Implementations must be safe to call from the reactor's single
// goroutine and from job-bridge worker goroutines concurrently.
type Observer interface {
	ObserveFixed(latencyNs uint64, success bool)
	ObserveFile(bytes uint64, latencyNs uint64, cacheHit bool, success bool)
	ObserveDynamic(bytes uint64, latencyNs uint64, success bool)
	ObserveJob(bytes uint64, latencyNs uint64, success bool)
	ObserveError(code string)
}

// RouteTable is the external route registry the reactor consults to decide
// how to handle a parsed request. Route business logic lives outside this
// module; the reactor only needs to know what kind of handling a path gets.
type RouteTable interface {
	// Lookup resolves a method+path to a RouteKind and, for every kind but
	// RouteNotFound, an opaque handler token the caller hands back on
	// InvokeInline, InvokeJob, or FilePath.
	Lookup(method, path string) (kind RouteKind, handler string)

	// InvokeInline runs a registered inline compute handler against the
	// request body and returns the raw JSON-ish bytes to send back.
	InvokeInline(handler string, body []byte) ([]byte, error)

	// InvokeJob runs a registered job handler off the reactor thread. It
	// is called from a job-bridge worker goroutine, never the reactor.
	InvokeJob(handler string, body []byte) ([]byte, error)

	// FilePath resolves a RouteFile handler and the original request path
	// to the filesystem path the reactor should stat/open/read.
	FilePath(handler, requestPath string) string
}

// RouteKind classifies how the reactor should service a matched route.
type RouteKind int

const (
	// RouteNotFound indicates no route matched the path.
	RouteNotFound RouteKind = iota
	// RouteFixed serves a constant, pre-built response body.
	RouteFixed
	// RouteFile serves file contents, through the file cache.
	RouteFile
	// RouteInline computes a response synchronously on the reactor thread.
	RouteInline
	// RouteJob computes a response off-reactor via the job bridge.
	RouteJob
)
