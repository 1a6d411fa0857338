//go:build unix

package overview

import (
	"fmt"
	"os"
	"syscall"
)

// lockFile takes an exclusive flock(2) on the sidecar lock file, blocking until
// other processes release it. The overview itself is replaced by rename, so
// the lock lives on a file that is never swapped out.
func (c *Cache) lockFile() (func(), error) {
	f, err := os.OpenFile(c.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open overview lock: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock overview: %w", err)
	}
	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}
