// Package scanner builds the current mod inventory from a remote directory.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/moddesc"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

var logger = logging.Get("scanner")

// ErrListFailed is returned when the remote directory cannot be listed.
var ErrListFailed = errors.New("listing remote directory failed")

// Source is the part of a transport the scanner needs.
type Source interface {
	List(ctx context.Context, dir string) ([]transport.Entry, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// ExtractFunc turns archive bytes into a record. It must not fail.
type ExtractFunc func(data []byte, displayName string, knownSize int64) types.ModRecord

// Progress reports the archive about to be fetched.
type Progress struct {
	Index int
	Total int
	Name  string
	Size  int64
}

// Stats summarizes the last scan.
type Stats struct {
	Listed       int   `json:"listed" yaml:"listed"`
	Archives     int   `json:"archives" yaml:"archives"`
	Skipped      int   `json:"skipped" yaml:"skipped"`
	FetchFailed  int   `json:"fetch_failed" yaml:"fetch_failed"`
	BytesFetched int64 `json:"bytes_fetched" yaml:"bytes_fetched"`
}

// Scanner lists a directory and extracts metadata for every archive in it.
// Each Scan builds a fresh inventory.
type Scanner struct {
	dir      string
	filter   *Filter
	extract  ExtractFunc
	progress func(Progress)
	stats    Stats
}

// Option configures a Scanner.
type Option func(*Scanner) error

// WithExclude skips archives whose names match any of the glob patterns.
func WithExclude(patterns ...string) Option {
	return func(s *Scanner) error {
		f, err := NewFilter(patterns...)
		if err != nil {
			return err
		}
		s.filter = f
		return nil
	}
}

// WithProgress registers a callback invoked before each fetch.
func WithProgress(fn func(Progress)) Option {
	return func(s *Scanner) error {
		s.progress = fn
		return nil
	}
}

// WithExtractor replaces the metadata extractor.
func WithExtractor(fn ExtractFunc) Option {
	return func(s *Scanner) error {
		s.extract = fn
		return nil
	}
}

// New returns a scanner for dir.
func New(dir string, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		dir:     dir,
		filter:  &Filter{},
		extract: moddesc.Extract,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Stats returns statistics for the most recent Scan.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Scan lists the directory and returns the inventory of its archives.
//
// A listing failure returns an empty inventory and an error wrapping
// ErrListFailed. A failed fetch only affects its own entry, which gets the
// fallback record. Archives are fetched one at a time in listing order; a
// duplicate name replaces the earlier record.
func (s *Scanner) Scan(ctx context.Context, src Source) (*types.Inventory, error) {
	s.stats = Stats{}
	inv := types.NewInventory()

	entries, err := src.List(ctx, s.dir)
	if err != nil {
		return types.NewInventory(), fmt.Errorf("%w: %s: %w", ErrListFailed, s.dir, err)
	}
	s.stats.Listed = len(entries)

	archives := make([]transport.Entry, 0, len(entries))
	for _, e := range entries {
		if s.filter.Match(e) {
			archives = append(archives, e)
		}
	}
	s.stats.Archives = len(archives)
	s.stats.Skipped = len(entries) - len(archives)

	logger.Info("scanning archives", "dir", s.dir, "archives", len(archives), "skipped", s.stats.Skipped)

	for i, e := range archives {
		if err := ctx.Err(); err != nil {
			return types.NewInventory(), err
		}

		if s.progress != nil {
			s.progress(Progress{Index: i, Total: len(archives), Name: e.Name, Size: e.Size})
		}

		inv.Set(e.Name, s.record(ctx, src, e))
	}

	return inv, nil
}

func (s *Scanner) record(ctx context.Context, src Source, e transport.Entry) types.ModRecord {
	data, err := src.Fetch(ctx, path.Join(s.dir, e.Name))
	if err != nil {
		s.stats.FetchFailed++
		logger.Warn("fetch failed, using fallback metadata", "archive", e.Name, "error", err)
		return types.Fallback(e.Name, e.Size)
	}
	s.stats.BytesFetched += int64(len(data))

	rec := s.extract(data, e.Name, e.Size)
	logger.Debug("archive scanned", "archive", e.Name, "title", rec.Title, "version", rec.Version)
	return rec
}
