package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockDir takes an exclusive lock on <root>.lock so that only one process
// mirrors into a store root at a time. Release it with Unlock.
func LockDir(root string) (*flock.Flock, error) {
	lockPath := filepath.Clean(root) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", lockPath, err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("store %s is in use by another process", root)
	}
	return lock, nil
}
