//go:build unix

package pwdb

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockedFile pairs an open file handle with the advisory lock held on it.
type lockedFile struct {
	file *os.File
}

func lockShared(path string) (*lockedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pwdb: open: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, path, err)
	}
	return &lockedFile{file: f}, nil
}

func lockExclusive(path string) (*lockedFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("pwdb: open: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, path, err)
	}
	return &lockedFile{file: f}, nil
}

// Close releases the advisory lock (implicitly, by closing the descriptor)
// and closes the file.
func (lf *lockedFile) Close() error {
	return lf.file.Close()
}
