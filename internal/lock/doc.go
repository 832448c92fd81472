// Package lock provides a non-blocking, process-exclusive file lock.
//
// The reconciliation worker takes one lock per host before touching the pool.
// On unix the lock is an flock on the file, released by the kernel if the
// process dies; elsewhere the file is created exclusively and removed on
// Release. A second Acquire fails at once with ErrLocked.
package lock
