//go:build !giouring

package uring

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

func newBackend(cfg Config) (Ring, error) {
	return newMinimalRing(cfg)
}

// Kernel io_uring ABI constants (see linux/io_uring.h). This mirrors the
// generic ring wrapper the real backend's API is modeled on rather than
// a single-opcode ublk passthrough command — the io_uring_setup/enter
// syscalls and the sqe/cqe/params layouts below are identical regardless
// of which opcode a given SQE carries.
const (
	opRead         = 22
	opWrite        = 23
	opStatx        = 21
	opOpenat       = 18
	opClose        = 19
	opWritev       = 2
	opAccept       = 13
	opFutexWait    = 51
	acceptMultishot = 1 << 0 // IORING_ACCEPT_MULTISHOT

	setupSQPOLL = 1 << 1

	enterGetEvents = 1 << 0

	offSQRing = 0
	offCQRing = 0x8000000
	offSQEs   = 0x10000000

	featSingleMmap = 1 << 0
)

type sqringOffsets struct {
	Head, Tail, RingMask, RingEntries, Flags, Dropped, Array, Resv1 uint32
	Resv2                                                           uint64
}

type cqringOffsets struct {
	Head, Tail, RingMask, RingEntries, Overflow, CQEs, Flags, Resv1 uint32
	Resv2                                                           uint64
}

type ringParams struct {
	SQEntries, CQEntries uint32
	Flags, SQThreadCPU   uint32
	SQThreadIdle         uint32
	Features             uint32
	WQFd                 uint32
	Resv                 [3]uint32
	SQOff                sqringOffsets
	CQOff                cqringOffsets
}

// sqe is the standard 64-byte io_uring submission queue entry.
type sqe struct {
	Opcode      uint8
	Flags       uint8
	Ioprio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpFlags     uint32
	UserData    uint64
	BufIndex    uint16
	Personality uint16
	SpliceFdIn  int32
	Addr3       uint64
	_pad        uint64
}

// cqe is the standard 16-byte completion queue entry.
type cqe struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

func (c *cqe) UserData_() uint64 { return c.UserData }

// cqeResult implements Result for the minimal backend.
type cqeResult struct {
	userData uint64
	res      int32
}

func (r cqeResult) UserData() uint64 { return r.userData }
func (r cqeResult) Res() int32       { return r.res }

// Statx mirrors struct statx for PrepareStatx callers that want the
// populated size/mode fields after the completion lands.
type Statx struct {
	Mask            uint32
	Blksize         uint32
	Attributes      uint64
	Nlink           uint32
	UID             uint32
	GID             uint32
	Mode            uint16
	_pad1           uint16
	Ino             uint64
	Size            uint64
	Blocks          uint64
	AttributesMask  uint64
	_btime, _ctime  [16]byte
	_mtime, _atime  [16]byte
	RdevMajor       uint32
	RdevMinor       uint32
	DevMajor        uint32
	DevMinor        uint32
	_spare          [14]uint64
}

type minimalRing struct {
	fd int

	sqMem, cqMem, sqesMem []byte
	entries               uint32

	sqHead, sqTail, sqMask, sqRingEntries *uint32
	sqFlags, sqDropped                    *uint32
	sqArray                               *uint32
	sqes                                  *sqe

	cqHead, cqTail, cqMask, cqRingEntries *uint32
	cqOverflow                            *uint32
	cqes                                  *cqe

	toSubmit uint32

	// pendingStatx maps an in-flight statx userData to the caller's
	// output struct and the kernel-format buffer the SQE points at.
	pendingStatx map[uint64]*Statx

	// pendingPath retains the NUL-terminated path buffer for every
	// in-flight statx/openat by userData. The SQE only carries a raw
	// address into the buffer's backing array, which the Go GC does not
	// trace, so the buffer must stay reachable through this map until
	// the matching completion is read back.
	pendingPath map[uint64][]byte
}

func newMinimalRing(cfg Config) (*minimalRing, error) {
	var params ringParams
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(cfg.Entries), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("uring: io_uring_setup: %w", errno)
	}

	r := &minimalRing{fd: int(fd), entries: params.SQEntries, pendingStatx: make(map[uint64]*Statx), pendingPath: make(map[uint64][]byte)}
	if err := r.mmapRings(&params); err != nil {
		unix.Close(int(fd))
		return nil, err
	}
	return r, nil
}

func (r *minimalRing) mmapRings(p *ringParams) error {
	sqRingSize := p.SQOff.Array + p.SQEntries*4
	cqRingSize := p.CQOff.CQEs + p.CQEntries*uint32(unsafe.Sizeof(cqe{}))

	sqMem, err := unix.Mmap(r.fd, offSQRing, int(sqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("uring: mmap sq ring: %w", err)
	}
	r.sqMem = sqMem

	var cqMem []byte
	if p.Features&featSingleMmap != 0 {
		cqMem = sqMem
	} else {
		cqMem, err = unix.Mmap(r.fd, offCQRing, int(cqRingSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
		if err != nil {
			return fmt.Errorf("uring: mmap cq ring: %w", err)
		}
	}
	r.cqMem = cqMem

	sqesMem, err := unix.Mmap(r.fd, offSQEs, int(p.SQEntries)*int(unsafe.Sizeof(sqe{})), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("uring: mmap sqes: %w", err)
	}
	r.sqesMem = sqesMem

	base := unsafe.Pointer(&sqMem[0])
	r.sqHead = (*uint32)(unsafe.Add(base, p.SQOff.Head))
	r.sqTail = (*uint32)(unsafe.Add(base, p.SQOff.Tail))
	r.sqMask = (*uint32)(unsafe.Add(base, p.SQOff.RingMask))
	r.sqRingEntries = (*uint32)(unsafe.Add(base, p.SQOff.RingEntries))
	r.sqFlags = (*uint32)(unsafe.Add(base, p.SQOff.Flags))
	r.sqDropped = (*uint32)(unsafe.Add(base, p.SQOff.Dropped))
	r.sqArray = (*uint32)(unsafe.Add(base, p.SQOff.Array))

	cbase := unsafe.Pointer(&cqMem[0])
	r.cqHead = (*uint32)(unsafe.Add(cbase, p.CQOff.Head))
	r.cqTail = (*uint32)(unsafe.Add(cbase, p.CQOff.Tail))
	r.cqMask = (*uint32)(unsafe.Add(cbase, p.CQOff.RingMask))
	r.cqRingEntries = (*uint32)(unsafe.Add(cbase, p.CQOff.RingEntries))
	r.cqOverflow = (*uint32)(unsafe.Add(cbase, p.CQOff.Overflow))
	r.cqes = (*cqe)(unsafe.Add(cbase, p.CQOff.CQEs))

	r.sqes = (*sqe)(unsafe.Pointer(&sqesMem[0]))
	return nil
}

func (r *minimalRing) Close() error {
	unix.Munmap(r.sqesMem)
	if r.cqMem != nil && &r.cqMem[0] != &r.sqMem[0] {
		unix.Munmap(r.cqMem)
	}
	unix.Munmap(r.sqMem)
	return unix.Close(r.fd)
}

// getSQE reserves the next free submission queue slot, or nil if the ring
// is full (caller must FlushSubmissions first).
func (r *minimalRing) getSQE() *sqe {
	head := atomic.LoadUint32(r.sqHead)
	next := *r.sqTail + 1
	if next-head > *r.sqRingEntries {
		return nil
	}
	mask := *r.sqMask
	idx := *r.sqTail & mask
	s := (*sqe)(unsafe.Add(unsafe.Pointer(r.sqes), uintptr(idx)*unsafe.Sizeof(sqe{})))
	*s = sqe{}
	return s
}

func (r *minimalRing) commitSQE(s *sqe, userData uint64) {
	s.UserData = userData
	mask := *r.sqMask
	idx := *r.sqTail & mask
	arrSlot := (*uint32)(unsafe.Add(unsafe.Pointer(r.sqArray), uintptr(idx)*4))
	*arrSlot = idx
	*r.sqTail++
	r.toSubmit++
}

func (r *minimalRing) PrepareMultishotAccept(listenFD int, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	s.Opcode = opAccept
	s.Fd = int32(listenFD)
	s.Ioprio = acceptMultishot // accept reads IORING_ACCEPT_MULTISHOT from ioprio
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) PrepareRead(fd int, buf []byte, offset int64, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	s.Opcode = opRead
	s.Fd = int32(fd)
	s.Off = uint64(offset)
	if len(buf) > 0 {
		s.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	s.Len = uint32(len(buf))
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) PrepareWrite(fd int, buf []byte, offset int64, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	s.Opcode = opWrite
	s.Fd = int32(fd)
	s.Off = uint64(offset)
	if len(buf) > 0 {
		s.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	s.Len = uint32(len(buf))
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) PrepareWritev(fd int, iovs [][]byte, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	iov := make([]unix.Iovec, len(iovs))
	for i, b := range iovs {
		if len(b) > 0 {
			iov[i].Base = &b[0]
		}
		iov[i].SetLen(len(b))
	}
	s.Opcode = opWritev
	s.Fd = int32(fd)
	if len(iov) > 0 {
		s.Addr = uint64(uintptr(unsafe.Pointer(&iov[0])))
	}
	s.Len = uint32(len(iov))
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) PrepareStatx(path string, userData uint64) (*Statx, error) {
	s := r.getSQE()
	if s == nil {
		return nil, ErrRingFull
	}
	pathBytes := append([]byte(path), 0)
	out := &Statx{}
	s.Opcode = opStatx
	s.Fd = int32(unix.AT_FDCWD)
	s.Addr = uint64(uintptr(unsafe.Pointer(&pathBytes[0])))
	s.OpFlags = unix.AT_STATX_SYNC_AS_STAT
	s.Len = 0x7ff // STATX_ALL
	s.Off = uint64(uintptr(unsafe.Pointer(out)))
	r.pendingStatx[userData] = out
	r.pendingPath[userData] = pathBytes
	r.commitSQE(s, userData)
	return out, nil
}

func (r *minimalRing) PrepareOpenat(path string, flags int, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	pathBytes := append([]byte(path), 0)
	s.Opcode = opOpenat
	s.Fd = int32(unix.AT_FDCWD)
	s.Addr = uint64(uintptr(unsafe.Pointer(&pathBytes[0])))
	s.OpFlags = uint32(flags)
	r.pendingPath[userData] = pathBytes
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) PrepareClose(fd int, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	s.Opcode = opClose
	s.Fd = int32(fd)
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) PrepareFutexWait(word *uint32, expect uint32, userData uint64) error {
	s := r.getSQE()
	if s == nil {
		return ErrRingFull
	}
	s.Opcode = opFutexWait
	s.Fd = 2 // futex2 flags: FUTEX2_SIZE_U32
	s.Addr = uint64(uintptr(unsafe.Pointer(word)))
	s.Off = uint64(expect)
	s.Addr3 = 0xffffffff // wait mask: match any bit
	r.commitSQE(s, userData)
	return nil
}

func (r *minimalRing) FlushSubmissions() (uint32, error) {
	if r.toSubmit == 0 {
		return 0, nil
	}
	Sfence()
	atomic.StoreUint32(r.sqTail, *r.sqTail)
	submitted := r.toSubmit
	_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd), uintptr(submitted), 0, 0, 0, 0)
	if errno != 0 {
		return 0, fmt.Errorf("uring: io_uring_enter: %w", errno)
	}
	r.toSubmit = 0
	return submitted, nil
}

func (r *minimalRing) waitAndRead(minComplete uintptr) (Result, bool, error) {
	head := *r.cqHead
	if head == atomic.LoadUint32(r.cqTail) {
		if minComplete == 0 {
			return nil, false, nil
		}
		_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd), 0, minComplete, enterGetEvents, 0, 0)
		if errno != 0 {
			return nil, false, fmt.Errorf("uring: io_uring_enter wait: %w", errno)
		}
	}
	mask := *r.cqMask
	idx := head & mask
	c := (*cqe)(unsafe.Add(unsafe.Pointer(r.cqes), uintptr(idx)*unsafe.Sizeof(cqe{})))
	res := cqeResult{userData: c.UserData, res: c.Res}
	atomic.StoreUint32(r.cqHead, head+1)
	delete(r.pendingStatx, c.UserData)
	delete(r.pendingPath, c.UserData)
	return res, true, nil
}

func (r *minimalRing) WaitForCompletion() (Result, error) {
	res, _, err := r.waitAndRead(1)
	return res, err
}

func (r *minimalRing) PeekCompletion() (Result, bool, error) {
	return r.waitAndRead(0)
}

func (r *minimalRing) SQSpaceLeft() int {
	head := atomic.LoadUint32(r.sqHead)
	return int(*r.sqRingEntries) - int(*r.sqTail-head)
}
