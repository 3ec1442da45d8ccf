// Package snapshot persists the last observed mod inventory between runs.
//
// The snapshot is a single JSON document keyed by archive name. It is read
// once at the start of a run and replaced atomically at the end.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

var logger = logging.Get("snapshot")

// tempPrefix marks in-progress writes next to the snapshot file.
const tempPrefix = ".tmp-"

// Store reads and writes the snapshot file at a fixed path.
type Store struct {
	path string
}

// New returns a store for the snapshot at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the previously saved inventory. A missing, unreadable or
// malformed snapshot yields an empty inventory; the problem is logged.
func (s *Store) Load() *types.Inventory {
	inv, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no previous snapshot", "path", s.path)
		} else {
			logger.Warn("ignoring unreadable snapshot", "path", s.path, "error", err)
		}
		return types.NewInventory()
	}
	return inv
}

func (s *Store) read() (*types.Inventory, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	raw := types.NewInventory()
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, err
	}

	inv := types.NewInventory()
	for name, rec := range raw.All() {
		if rec.Filesize < 0 {
			return nil, fmt.Errorf("%w: negative filesize for %s", types.ErrInvalidInventory, name)
		}
		inv.Set(name, rec.Normalize(name))
	}
	return inv, nil
}

// Save replaces the snapshot with inv. The document is written to a temp
// file in the same directory, synced and renamed over the old snapshot so a
// failed write never leaves a truncated file behind.
func (s *Store) Save(inv *types.Inventory) (err error) {
	if inv == nil {
		inv = types.NewInventory()
	}

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+filepath.Base(s.path)+"-")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	logger.Debug("snapshot saved", "path", s.path, "mods", inv.Len())
	return nil
}

// Info describes the snapshot on disk.
type Info struct {
	Path      string    `json:"path" yaml:"path"`
	Exists    bool      `json:"exists" yaml:"exists"`
	Valid     bool      `json:"valid" yaml:"valid"`
	ModTime   time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	Mods      int       `json:"mods" yaml:"mods"`
	TotalSize int64     `json:"total_size" yaml:"total_size"`
}

// Stat reports on the snapshot file without modifying it. A malformed
// snapshot is reported as existing but not valid.
func (s *Store) Stat() (Info, error) {
	info := Info{Path: s.path}

	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("stat snapshot: %w", err)
	}

	info.Exists = true
	info.ModTime = fi.ModTime()
	info.Bytes = fi.Size()

	inv, err := s.read()
	if err != nil {
		return info, nil
	}
	info.Valid = true
	info.Mods = inv.Len()
	info.TotalSize = inv.TotalSize()
	return info, nil
}

// Remove deletes the snapshot. A missing snapshot is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

// CleanTemp removes temp files left behind by interrupted saves and returns
// the paths it removed.
func (s *Store) CleanTemp() ([]string, error) {
	dir := filepath.Dir(s.path)
	prefix := tempPrefix + filepath.Base(s.path) + "-"

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("removing %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}
