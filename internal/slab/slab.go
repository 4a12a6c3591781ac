// Package slab implements a size-classed free-list allocator for the
// reactor's per-request scratch buffers (request read buffers, path
// buffers, response headers, file contents). Event records themselves
// are ordinary Go heap objects and do not come from this allocator.
//
// The reactor is single-threaded and allocates/frees small, short-lived
// buffers at a high rate (several per in-flight request). Routing every
// one of those through the Go heap allocator works, but it defeats the
// purpose of a ring designed to avoid per-request garbage: a freed
// buffer of a given size is reused for the next buffer of that size
// instead of going back to the garbage collector. Bucketing is by
// power-of-two size class, matching a classic malloc free-list design.
package slab

import (
	"math/bits"
	"unsafe"
)

// NumClasses is the number of power-of-two size classes, covering byte
// sizes from 1 up to 1<<(NumClasses-1).
const NumClasses = 31

// Allocator is a single-threaded, size-classed free-list allocator. It is
// not safe for concurrent use — the reactor owns exactly one instance.
type Allocator struct {
	free [NumClasses][]byte // head of each class's free list, chained via nodeAt

	// retain holds every backing array ever allocated for a class, for the
	// Allocator's whole lifetime. The free list links a freed block to the
	// next one by writing a slice header into the freed block's own
	// backing array (nodeAt), but a []byte's backing array has no pointer
	// typing the garbage collector traces into — so a block reachable only
	// through that embedded link, and not through any ordinary Go
	// variable, is eligible for collection while still logically on the
	// list. retain keeps every block reachable through a real, GC-traced
	// slice regardless of free-list state, so a block is never reclaimed
	// out from under the list that still references its bytes.
	retain [NumClasses][][]byte
}

// New returns a ready-to-use Allocator.
func New() *Allocator {
	return &Allocator{}
}

// classOf returns the size class index for a requested size: the smallest
// power of two that is >= size. size must be > 0.
func classOf(size int) int {
	if size <= 1 {
		return 0
	}
	return bits.Len(uint(size - 1))
}

// classSize returns the byte size backing class c.
func classSize(c int) int {
	return 1 << uint(c)
}

// freeListNode is written into the first bytes of a freed block so the
// block itself forms the free list's link — no separate bookkeeping
// allocation per freed chunk.
type freeListNode struct {
	next []byte
}

func nodeAt(buf []byte) *freeListNode {
	return (*freeListNode)(unsafe.Pointer(&buf[0]))
}

// Alloc returns a byte slice of at least size bytes from the matching
// size class, reusing a freed block if one is available.
func (a *Allocator) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	c := classOf(size)
	if c >= NumClasses {
		return make([]byte, size) // larger than the largest class: fall through to the heap
	}
	if head := a.free[c]; head != nil {
		a.free[c] = nodeAt(head).next
		return head[:size]
	}
	buf := make([]byte, classSize(c))
	a.retain[c] = append(a.retain[c], buf)
	return buf[:size]
}

// Free returns buf to its size class's free list. buf must have been
// obtained from Alloc (or AllocN) and not already freed. A nil or
// zero-length slice is a no-op.
func (a *Allocator) Free(buf []byte) {
	if buf == nil {
		return
	}
	c := classOf(cap(buf))
	full := buf[:cap(buf)]
	if c >= NumClasses || len(full) < int(unsafe.Sizeof(freeListNode{})) {
		return // too small to hold a link node, or off-class: let the GC reclaim it
	}
	nodeAt(full).next = a.free[c]
	a.free[c] = full
}

// CopyString allocates len(s)+1 bytes and copies s into it, NUL-terminated,
// for the handful of call sites that hand a path buffer toward a syscall.
func (a *Allocator) CopyString(s string) []byte {
	buf := a.Alloc(len(s) + 1)
	copy(buf, s)
	buf[len(s)] = 0
	return buf
}

// CopyBytes allocates len(b) bytes and copies b into it.
func (a *Allocator) CopyBytes(b []byte) []byte {
	buf := a.Alloc(len(b))
	copy(buf, b)
	return buf
}
