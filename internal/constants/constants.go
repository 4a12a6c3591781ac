// Package constants holds the default tunables shared across the ring,
// route engine, and job bridge.
package constants

import "time"

// Ring / reactor defaults.
const (
	// DefaultQueueDepth is the number of submission/completion queue
	// entries the reactor's ring is created with.
	DefaultQueueDepth = 256

	// SQSpaceMargin is the number of free SQ slots the drain loop keeps
	// in reserve before breaking out to flush. Mirrors the reactor's
	// "stop around io_uring_sq_space_left(&ring) < 16" rule.
	SQSpaceMargin = 16

	// HeaderBufferMax is a size bound for a response header block. No
	// code reads it: routeengine formats each header block with
	// fmt.Sprintf and the reactor copies it into a buffer of exactly
	// that length.
	HeaderBufferMax = 512

	// HTTPMaxRequestBufferSize is the fixed-size buffer each accepted
	// connection reads its request line, headers, and body into.
	HTTPMaxRequestBufferSize = 8192
)

// Slab allocator.
const (
	// SlabNumClasses is the number of power-of-two size classes the
	// slab allocator maintains (sizes up to 1GiB, ceil(log2(size))).
	SlabNumClasses = 31
)

// AIO buffer pool.
const (
	// AIOBufferSize is the fixed size of every buffer the AIO pool
	// hands out to job-bridge workers for their results.
	AIOBufferSize = 8192
)

// File cache.
const (
	// SmallCachePathMax is the longest path the file cache's small-key
	// index can hold inline; longer paths are not memoized.
	SmallCachePathMax = 32
)

// Job bridge.
const (
	// DefaultJobQueueDepth bounds how many pending compute jobs may sit
	// in the worker pool's intake channel before job submission blocks.
	DefaultJobQueueDepth = 256

	// JobShutdownGrace is a grace period for draining in-flight workers
	// at shutdown. No code reads it: jobbridge.Bridge.Close waits for
	// its workers without a time limit.
	JobShutdownGrace = 2 * time.Second
)
