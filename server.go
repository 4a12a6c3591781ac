// Package ringd is the main API for running an HTTP/1.0 server on top
// of a completion-based io_uring reactor: a single-threaded event pump,
// a slab allocator and AIO buffer pool for scratch memory, a small file
// cache, and a bounded worker pool for routes too expensive to run on
// the reactor thread.
package ringd

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/behrlich/ringd/internal/interfaces"
	"github.com/behrlich/ringd/internal/logging"
	"github.com/behrlich/ringd/internal/reactor"
	"github.com/behrlich/ringd/internal/routeengine"
	"golang.org/x/sys/unix"
)

// Config configures a Server.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":8000".
	Addr string

	// Routes resolves paths to handlers. If nil, NewBuiltinTable(StaticRoot)
	// is used, serving the canonical v1 route set.
	Routes interfaces.RouteTable

	// StaticRoot is the filesystem root RouteFile handlers are resolved
	// against, when Routes is left nil.
	StaticRoot string

	// QueueDepth is the io_uring submission/completion queue depth.
	QueueDepth uint32

	// NumJobWorkers is the job bridge's worker pool size (0 = runtime.NumCPU()).
	NumJobWorkers int
	// JobQueueDepth is the job bridge's buffered queue depth (0 = default).
	JobQueueDepth int

	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// Server is a running ring-backed HTTP/1.0 server.
type Server struct {
	listenFD int
	reactor  *reactor.Reactor

	ctx    context.Context
	cancel context.CancelFunc
	done   chan error
}

// Serve binds cfg.Addr, creates the reactor, and starts it on a
// dedicated goroutine — the equivalent of this module's startup()
// followed by runloop(). It returns without waiting for the reactor to
// arm its standing accept; connections that arrive before then wait in
// the listen backlog. The reactor runs until ctx is canceled or
// Shutdown is called.
func Serve(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Routes == nil {
		cfg.Routes = routeengine.NewBuiltinTable(cfg.StaticRoot)
	}

	listenFD, err := listen(cfg.Addr)
	if err != nil {
		return nil, WrapError("listen", err)
	}

	rct, err := reactor.New(reactor.Config{
		ListenFD:      listenFD,
		Routes:        cfg.Routes,
		Logger:        cfg.Logger,
		Observer:      cfg.Observer,
		QueueDepth:    cfg.QueueDepth,
		NumJobWorkers: cfg.NumJobWorkers,
		JobQueueDepth: cfg.JobQueueDepth,
	})
	if err != nil {
		unix.Close(listenFD)
		return nil, WrapError("reactor.New", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		listenFD: listenFD,
		reactor:  rct,
		ctx:      runCtx,
		cancel:   cancel,
		done:     make(chan error, 1),
	}

	go func() {
		s.done <- rct.Run(runCtx)
	}()

	return s, nil
}

// Shutdown cancels the reactor's run loop, tears the ring and job
// bridge down, and waits (up to a grace period) for the run goroutine
// to exit — mirroring shutdown()'s queue_exit plus file-cache teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	closeErr := s.reactor.Close()
	unix.Close(s.listenFD)

	select {
	case runErr := <-s.done:
		if runErr != nil {
			return runErr
		}
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return fmt.Errorf("ringd: shutdown timed out waiting for reactor to stop")
	}
}

// listen creates a listening socket bound to addr (host:port
// or :port), the Go-native equivalent of setup_listening_socket's raw
// socket/bind/listen sequence — done directly with the syscall package
// rather than net.Listen because the resulting fd is handed straight to
// the ring's multishot accept, which owns accept() from here on; a
// net.Listener would fight the reactor for control of the fd.
func listen(addr string) (int, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], host)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	return fd, nil
}

// splitHostPort parses addr into a dotted-quad (or empty, for all
// interfaces) host and a numeric port, accepting the same ":8000" and
// "0.0.0.0:8000" forms net.Listen does.
func splitHostPort(addr string) (host string, port int, err error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", p, err)
	}
	if h == "" {
		return "", portNum, nil
	}
	ip := net.ParseIP(h)
	if ip == nil || ip.To4() == nil {
		return "", 0, fmt.Errorf("unsupported host %q: only IPv4 addresses are supported", h)
	}
	return string(ip.To4()), portNum, nil
}
