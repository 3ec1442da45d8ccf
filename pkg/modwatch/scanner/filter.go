package scanner

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/jamesainslie/modwatch/pkg/modwatch/transport"
)

// ArchiveExt is the extension of mod archives, compared case-insensitively.
const ArchiveExt = ".zip"

// Filter decides which listing entries are mod archives worth scanning.
type Filter struct {
	exclude []glob.Glob
}

// NewFilter compiles the exclude patterns. Patterns match the entry name
// (not the full path) using shell-style globs such as "*_backup.zip".
func NewFilter(exclude ...string) (*Filter, error) {
	f := &Filter{}
	for _, pattern := range exclude {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether the entry should be scanned.
func (f *Filter) Match(e transport.Entry) bool {
	if e.IsDir {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(e.Name), ArchiveExt) {
		return false
	}
	for _, g := range f.exclude {
		if g.Match(e.Name) {
			return false
		}
	}
	return true
}
