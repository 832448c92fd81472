// ABOUTME: Process-exclusive, non-blocking execution lock on a file
// ABOUTME: A second holder fails immediately with ErrLocked instead of waiting

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// Lock is a held file lock.
type Lock struct {
	path string
	file *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock at path without blocking. The parent directory is
// created if needed. The holder's pid is written into the file for operators.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := acquire(path)
	if err != nil {
		return nil, err
	}

	// the pid is informational; the flock alone guards the pass
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{path: path, file: f}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := release(l.path, l.file)
	l.file = nil
	return err
}

// Name returns the lock file name for a worker identity.
func Name(identity string) string {
	return "reconcile-" + identity + ".lock"
}
