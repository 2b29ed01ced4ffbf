//go:build linux

package osyield

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Yield calls sched_yield(2). If the call fails, it falls back to
// [runtime.Gosched] so that the caller still gives up its turn.
func Yield() {
	if _, _, errno := unix.RawSyscall(unix.SYS_SCHED_YIELD, 0, 0, 0); errno != 0 {
		runtime.Gosched()
	}
}
