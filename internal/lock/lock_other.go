// ABOUTME: Exclusive-create lock file fallback for platforms without flock
// ABOUTME: A stale file left by a crash must be removed by hand

//go:build !unix

package lock

import (
	"errors"
	"fmt"
	"os"
)

func acquire(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_EXCL|os.O_CREATE, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("creating lock file %s: %w", path, err)
	}
	return f, nil
}

func release(path string, f *os.File) error {
	f.Close()
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing lock file %s: %w", path, err)
	}
	return nil
}
