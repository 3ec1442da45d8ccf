package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the snapshot lock.
var ErrLocked = errors.New("another run is in progress")

// LockPath returns the path of the lock file guarding the snapshot.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Lock takes the run lock without blocking. The caller must Unlock the
// returned lock when the run ends.
func (s *Store) Lock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	lock := flock.New(s.LockPath())

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, s.LockPath())
	}
	return lock, nil
}
