//go:build !unix

package secbuf

// mlock is a no-op on platforms without an mlock-equivalent wired up; the
// wipe guarantee still holds, only the memory-pinning is unavailable.
func mlock(data []byte) bool { return false }

func munlock(data []byte) {}
