//go:build windows

package pwdb

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

type lockedFile struct {
	file *os.File
}

func lockFile(path string, flags uint32) (*lockedFile, error) {
	openFlags := os.O_RDWR
	if flags&windows.LOCKFILE_EXCLUSIVE_LOCK != 0 {
		openFlags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, openFlags, 0600)
	if err != nil {
		return nil, fmt.Errorf("pwdb: open: %w", err)
	}
	ol := new(windows.Overlapped)
	err = windows.LockFileEx(windows.Handle(f.Fd()), flags|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, path, err)
	}
	return &lockedFile{file: f}, nil
}

func lockShared(path string) (*lockedFile, error) {
	return lockFile(path, 0)
}

func lockExclusive(path string) (*lockedFile, error) {
	return lockFile(path, windows.LOCKFILE_EXCLUSIVE_LOCK)
}

func (lf *lockedFile) Close() error {
	var ol windows.Overlapped
	_ = windows.UnlockFileEx(windows.Handle(lf.file.Fd()), 0, 1, 0, &ol)
	return lf.file.Close()
}
