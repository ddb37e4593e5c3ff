package runstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the run directory while a run executes.
const LockFileName = ".lock"

// ErrRunLocked means another process holds the run.
var ErrRunLocked = errors.New("run is locked by another process")

// RunLock is an exclusive advisory lock on one run id.
type RunLock struct {
	lock *flock.Flock
}

// AcquireLock takes the run's lock without blocking.
func AcquireLock(baseDir, runID string) (*RunLock, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	path := filepath.Join(dir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, runID)
	}
	return &RunLock{lock: lock}, nil
}

// Path is the lock file location.
func (l *RunLock) Path() string { return l.lock.Path() }

// Release unlocks. Safe to call more than once.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
