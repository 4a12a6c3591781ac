package jobbridge

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexWake performs a raw FUTEX_WAKE on word, waking up to one waiter
// (the reactor's FUTEX_WAIT SQE). Built on a direct SYS_FUTEX syscall in
// the same style the ring package uses for io_uring_setup/io_uring_enter
// — golang.org/x/sys/unix supplies the syscall number, there is no
// higher-level futex wrapper in the standard library or the pack.
func futexWake(word *uint32) {
	const (
		futexWakeOp = 1 // FUTEX_WAKE
		wakeOne     = 1
	)
	unix.Syscall(unix.SYS_FUTEX, uintptr(unsafe.Pointer(word)), futexWakeOp, wakeOne)
}
