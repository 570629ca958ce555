// Package fslock provides advisory file locking built on flock(2).
package fslock

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval is the retry cadence while waiting for a held lock.
const pollInterval = 10 * time.Millisecond

// Lock is an advisory lock serializing read-modify-write sequences on a
// shared file across independent processes.
//
// The lock is taken on a dedicated lock file, never on the data file itself:
// atomic-rename replaces the data file's inode, which would silently detach
// any lock held on it.
//
// A Lock is not safe for concurrent use by multiple goroutines; callers hold
// a process-local mutex around Acquire/Release pairs.
type Lock struct {
	path string
	file *os.File
}

// New creates a lock handle for the given lock-file path.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the lock exclusively, blocking until it is granted or ctx is
// done. The lock file is created if absent.
func (l *Lock) Acquire(ctx context.Context) error {
	return l.acquire(ctx, unix.LOCK_EX)
}

// AcquireShared takes the lock in shared mode, for readers that must not
// interleave with an in-progress write.
func (l *Lock) AcquireShared(ctx context.Context) error {
	return l.acquire(ctx, unix.LOCK_SH)
}

func (l *Lock) acquire(ctx context.Context, how int) error {
	if l.file != nil {
		return fmt.Errorf("fslock: %s already held", l.path)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("fslock: open %s: %w", l.path, err)
	}

	for {
		err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return fmt.Errorf("fslock: flock %s: %w", l.path, err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return fmt.Errorf("fslock: waiting for %s: %w", l.path, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return fmt.Errorf("fslock: unlock %s: %w", l.path, err)
	}
	return f.Close()
}

// Held reports whether this handle currently holds the lock.
func (l *Lock) Held() bool {
	return l.file != nil
}
