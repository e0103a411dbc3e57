package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// lockRetry is how often a blocked Lock polls for the flock.
const lockRetry = 100 * time.Millisecond

// FileLock is an advisory cross-process lock backed by flock.
type FileLock struct {
	lock *flock.Flock
}

// NewFileLock creates a lock guarding path. The lock file itself lives at
// path + ".lock".
func NewFileLock(path string) *FileLock {
	return &FileLock{
		lock: flock.New(path + ".lock"),
	}
}

// Lock blocks until the lock is held or ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	locked, err := l.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire lock: timeout")
	}
	return nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	return l.lock.Unlock()
}
