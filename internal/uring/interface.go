// Package uring provides the generalized io_uring submission/completion
// ring the reactor drives: multishot accept, read, write, writev, statx,
// openat, close, and futex-wait. This supersedes a narrower ring scoped
// to a single URING_CMD opcode (the shape this package's pure-Go minimal
// backend was adapted from) — an HTTP reactor needs the kernel's generic
// opcode set, not a single ioctl-style passthrough command.
package uring

import "errors"

// ErrRingFull is returned by a Prepare* call when the submission queue
// has no free entry; the caller must FlushSubmissions and retry.
var ErrRingFull = errors.New("uring: submission queue full")

// Config configures a new Ring.
type Config struct {
	// Entries is the submission/completion queue depth (rounded up to a
	// power of two by the kernel).
	Entries uint32
}

// Result is one completion queue entry.
type Result interface {
	UserData() uint64
	Res() int32
}

// Ring is the reactor's view of an io_uring instance. Implementations
// must only be driven from a single goroutine — it is not safe for
// concurrent use, matching the reactor's single-threaded ownership model.
type Ring interface {
	Close() error

	// PrepareMultishotAccept arms one SQE that yields a completion per
	// accepted connection until canceled or the ring is closed.
	PrepareMultishotAccept(listenFD int, userData uint64) error

	PrepareRead(fd int, buf []byte, offset int64, userData uint64) error
	PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error
	PrepareWritev(fd int, iovs [][]byte, userData uint64) error
	PrepareStatx(path string, userData uint64) (*Statx, error)
	PrepareOpenat(path string, flags int, userData uint64) error
	PrepareClose(fd int, userData uint64) error
	PrepareFutexWait(word *uint32, expect uint32, userData uint64) error

	// FlushSubmissions publishes every prepared-but-not-yet-submitted SQE
	// to the kernel. The reactor calls this once per drain, not once per
	// Prepare* call.
	FlushSubmissions() (uint32, error)

	// WaitForCompletion blocks for at least one completion and returns it.
	WaitForCompletion() (Result, error)

	// PeekCompletion returns a completion without blocking, or (nil,
	// false, nil) if none is ready.
	PeekCompletion() (Result, bool, error)

	// SQSpaceLeft reports free submission queue slots.
	SQSpaceLeft() int
}

// NewRing constructs the ring backend selected at build time: the real
// liburing-backed implementation under the `giouring` build tag, or the
// pure-Go minimal backend otherwise (see real.go / minimal.go).
func NewRing(cfg Config) (Ring, error) {
	if cfg.Entries == 0 {
		cfg.Entries = 256
	}
	return newBackend(cfg)
}
