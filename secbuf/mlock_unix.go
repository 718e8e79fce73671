//go:build unix

package secbuf

import "golang.org/x/sys/unix"

// mlock attempts to pin data into physical memory so it cannot be paged to
// swap. Failure is not an error condition for callers: memory locking is a
// best-effort hardening measure, and many environments (containers without
// CAP_IPC_LOCK, memory-locked-pages rlimit exhausted) will deny it.
func mlock(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return unix.Mlock(data) == nil
}

func munlock(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Munlock(data)
}
