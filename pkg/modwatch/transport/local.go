package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalTransport reads a directory on the local filesystem, for servers
// whose mod folder is mounted locally.
type LocalTransport struct {
	root string
}

// NewLocal returns a transport that resolves paths under root. An empty
// root uses paths as given.
func NewLocal(root string) *LocalTransport {
	return &LocalTransport{root: root}
}

func (l *LocalTransport) resolve(p string) string {
	if l.root == "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(l.root, filepath.FromSlash(p))
}

// List returns the entries of dir.
func (l *LocalTransport) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(l.resolve(dir))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Size:    info.Size(),
			IsDir:   de.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Fetch reads the file at path.
func (l *LocalTransport) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return data, nil
}

// Close is a no-op.
func (l *LocalTransport) Close() error {
	return nil
}

var _ Transport = (*LocalTransport)(nil)
