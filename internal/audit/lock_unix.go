//go:build unix

package audit

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes an advisory exclusive lock on f, returning an
// unlock function. The lock is held only for the duration of one append.
func lockExclusive(f *os.File) (func(), error) {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return nil, err
	}
	return func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
	}, nil
}
